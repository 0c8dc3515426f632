package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
)

var (
	errSessionStarting = echo.NewHTTPError(http.StatusServiceUnavailable, "la sesión aún se está inicializando")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permiso denegado")
	errInvalidID       = echo.NewHTTPError(http.StatusBadRequest, "identificador inválido")
)

type remoteErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status int    `json:"status,omitempty"`
	Retry  string `json:"retry,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, sc *session.Context, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *echo.BindingError:
			code = http.StatusBadRequest
			message = map[string]string{origErr.Field: "valor inválido"}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				message = origErr.FieldMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.RemoteError:
			code = http.StatusBadGateway
			message = remoteErrorResponse{Error: origErr.Message, Code: origErr.Code, Status: origErr.Status}
		case *core.SchemaMismatchError:
			code = http.StatusBadGateway
			message = remoteErrorResponse{Error: origErr.Error()}
			logger.Error("unexpected remote schema", err, sc.Operator())
		default:
			switch origErr {
			case core.ErrNotFound:
				code, message = http.StatusNotFound, origErr.Error()
			case core.ErrConfirmationRequired:
				code, message = http.StatusPreconditionRequired, origErr.Error()
			case core.ErrNoSession:
				code, message = http.StatusUnauthorized, origErr.Error()
			case student.ErrNoAvatarStore:
				code, message = http.StatusNotImplemented, origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), sc.Operator())

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
				if ctx.Echo().Debug {
					message = err.Error()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = remoteErrorResponse{Error: m}
		}
		// a failed page load can be retried on the same path
		if resp, ok := message.(remoteErrorResponse); ok && ctx.Request().Method == http.MethodGet && code >= http.StatusInternalServerError {
			resp.Retry = ctx.Request().URL.RequestURI()
			message = resp
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
