package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const (
	contextTokenKey     = "userToken"
	contextPrincipalKey = "principal"
	audience            = "Shule"
)

// Claims represents the authorization claims transmitted via a JWT.
// They carry the resolved principal, rebuilt from them on every request.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Kind         user.Kind `json:"kind"`
	SchoolID     string    `json:"school_id"`
	ProfileID    string    `json:"profile_id,omitempty"`
	Roles        []string  `json:"roles,omitempty"`
}

// Principal rebuilds the principal the claims were issued for.
func (c Claims) Principal() (user.Principal, error) {
	return user.NewPrincipal(c.Kind, user.Identity{UserID: c.Subject, SchoolID: c.SchoolID}, c.ProfileID, c.Roles)
}

type jwtAuth struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// NewClaims returns the claims of a token issued for `p`.
// origIat is the issue time of the first token of a refresh chain.
func NewClaims(conf *core.Config, p user.Principal, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	var roles []string
	if admin, ok := p.(user.Admin); ok {
		roles = admin.Roles
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.Ident().UserID,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Kind:         p.Kind(),
		SchoolID:     p.Ident().SchoolID,
		ProfileID:    p.ProfileID(),
		Roles:        roles,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parse validates a token string outside of the JWT middleware, e.g. from a query param.
func (a *jwtAuth) parse(tokenString string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.config.SigningMethod {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return a.config.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

// getContextPrincipal returns the caller rebuilt from the token claims, without hitting storage.
func getContextPrincipal(ctx echo.Context) (user.Principal, error) {
	if p, ok := ctx.Get(contextPrincipalKey).(user.Principal); ok {
		return p, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, err
	}
	p, err := claims.Principal()
	if err != nil {
		return nil, errUnauthorized
	}
	ctx.Set(contextPrincipalKey, p)
	return p, nil
}

func (a *jwtAuth) issue(p user.Principal, origIat ...int64) (string, error) {
	return GenerateToken(a.conf, NewClaims(a.conf, p, origIat...))
}

// refresh issues a new token for the caller as long as the refresh window is open.
// The principal is resolved again so that role or profile changes are picked up.
func (a *jwtAuth) refresh(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return "", user.ErrAccountDeactivated
	}
	p, err := svc.ResolvePrincipal(ctx.Request().Context(), usr)
	if err != nil {
		return "", err
	}
	return a.issue(p, claims.OrigIssuedAt)
}
