package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/user"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidToken     = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errRefreshExpired   = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTooManyRequests  = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
	errCannotDeleteSelf = echo.NewHTTPError(http.StatusForbidden, "cannot delete yourself")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Conflicts []course.Conflict `json:"conflicts,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, resp := classify(err, translator)

		if code == http.StatusInternalServerError {
			args := []interface{}{errors.Wrap(err, resp.Message)}
			if p, pErr := getContextPrincipal(ctx); pErr == nil {
				args = append(args, p)
			}
			logger.Error(resp.Message, args...)

			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}
			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// classify maps an error to its status code and response body.
func classify(err error, translator ut.Translator) (int, ErrorResponse) {
	cause := errors.Cause(err)
	switch cause {
	case core.ErrPermissionDenied:
		return http.StatusForbidden, ErrorResponse{Message: cause.Error()}
	case user.ErrInvalidCredentials:
		return http.StatusBadRequest, ErrorResponse{Message: cause.Error()}
	case user.ErrAccountDeactivated, user.ErrNoProfile, user.ErrNoRole:
		return http.StatusForbidden, ErrorResponse{Message: cause.Error()}
	case middleware.ErrJWTMissing:
		return http.StatusUnauthorized, ErrorResponse{Message: fmt.Sprint(middleware.ErrJWTMissing.Message)}
	}

	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, ErrorResponse{Message: fmt.Sprint(origErr.Message)}
	case validator.ValidationErrors:
		fields := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fields[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, ErrorResponse{Message: "validation failed", Fields: fields}
	case *core.ValidationError:
		resp := ErrorResponse{Message: origErr.Error()}
		if len(origErr.Fields) > 0 {
			resp.Fields = make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				resp.Fields[fErr.Field] = fErr.Error
			}
		}
		return http.StatusBadRequest, resp
	case *course.ConflictError:
		return http.StatusBadRequest, ErrorResponse{Message: origErr.Error(), Conflicts: origErr.Conflicts}
	case *core.NotFoundError:
		return http.StatusNotFound, ErrorResponse{Message: origErr.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Message: http.StatusText(http.StatusInternalServerError)}
}
