package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
)

// httpError maps err to a status code and a response message.
// The message is either a string or a {field: error} map.
func httpError(err error, translator ut.Translator) (int, interface{}) {
	cause := errors.Cause(err)
	switch cause {
	case core.ErrUnauthenticated:
		return http.StatusUnauthorized, cause.Error()
	case core.ErrForbidden:
		return http.StatusForbidden, cause.Error()
	}

	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		if len(origErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, origErr.Error()
	case *core.NotFoundError:
		return http.StatusNotFound, origErr.Error()
	case *core.ConflictError:
		return http.StatusConflict, origErr.Error()
	case *core.InvalidRoleError:
		return http.StatusBadRequest, origErr.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var body interface{}
		var code int

		if bulkErr, ok := errors.Cause(err).(*attendance.BulkError); ok {
			// records before the failing one were kept
			var message interface{}
			code, message = httpError(bulkErr.Err, translator)
			body = echo.Map{"error": message, "count": bulkErr.Applied, "index": bulkErr.Index}
			err = bulkErr.Err
		} else {
			code, body = httpError(err, translator)
			if m, ok := body.(string); ok {
				body = echo.Map{"error": m}
			}
		}

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			logger.Error(msg, errors.Wrap(err, msg), contextIdentity(ctx))
			if ctx.Echo().Debug {
				body = echo.Map{"error": err.Error()}
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
