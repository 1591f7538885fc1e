package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("user")
	ErrUserExists          = errors.New("a user with this username or email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDeactivated  = errors.New("account deactivated")
	ErrNoProfile           = errors.New("user has no profile for its role")
	ErrNoRole              = errors.New("user has no role")
	errCannotAssignProfile = errors.New("cannot resolve principal")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string) (int, error)
	}

	// ProfileFinder finds the teacher, parent or student profile linked to a user.
	ProfileFinder interface {
		FindProfileID(ctx context.Context, kind Kind, userID string) (string, error)
	}

	Service struct {
		repo     Repository
		profiles ProfileFinder
	}
)

func NewService(repo Repository, profiles ProfileFinder) *Service {
	return &Service{repo: repo, profiles: profiles}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers); err != nil {
		if errors.Cause(err) == ErrUserExists {
			fields := make([]core.FieldError, 0, 2)
			if uname != "" {
				fields = append(fields, core.FieldError{Field: "username", Error: err.Error()})
			}
			if email != "" {
				fields = append(fields, core.FieldError{Field: "email", Error: err.Error()})
			}
			return core.NewValidationError(err, fields...)
		}
		return err
	}
	return nil
}

// Create creates a new active user attached to `schoolID`.
func (svc *Service) Create(ctx context.Context, schoolID string, nu NewUser) (User, error) {
	now := core.NowFunc()
	usr := User{
		SchoolID:  schoolID,
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Upsert updates the user matching usr's username or email, or creates it.
func (svc *Service) Upsert(ctx context.Context, usr User, pwd string) (User, error) {
	existing, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{usr.Username, usr.Email}})
	if err != nil && errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user")
	}
	now := core.NowFunc()
	if err == nil {
		existing.Name = usr.Name
		existing.SchoolID = usr.SchoolID
		existing.Roles = usr.Roles
		existing.IsActive = true
		existing.UpdatedAt = now
		usr = existing
	} else {
		usr.IsActive = true
		usr.CreatedAt = now
		usr.UpdatedAt = now
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	if usr.ID == "" {
		return svc.repo.CreateUser(ctx, usr)
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{uname}})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteUsersByID(ctx, ids)
}

// Authenticate checks the credentials and resolves the caller's Principal.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, Principal, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, nil, ErrInvalidCredentials
		}
		return User{}, nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, nil, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, nil, ErrAccountDeactivated
	}

	p, err := svc.ResolvePrincipal(ctx, usr)
	if err != nil {
		return User{}, nil, err
	}

	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, nil, errors.Wrap(err, "setting lastLogin")
	}
	return usr, p, nil
}

// ResolvePrincipal maps a user to its Principal, looking up its profile once.
func (svc *Service) ResolvePrincipal(ctx context.Context, usr User) (Principal, error) {
	kind := usr.Kind()
	id := Identity{UserID: usr.ID, SchoolID: usr.SchoolID}

	switch kind {
	case "":
		return nil, ErrNoRole
	case KindAdmin:
		return NewPrincipal(kind, id, usr.ID, usr.Roles)
	}

	if svc.profiles == nil {
		return nil, errors.Wrap(errCannotAssignProfile, "no profile finder")
	}
	profileID, err := svc.profiles.FindProfileID(ctx, kind, usr.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, ErrNoProfile
		}
		return nil, errors.Wrap(err, "finding user profile")
	}
	return NewPrincipal(kind, id, profileID, usr.Roles)
}
