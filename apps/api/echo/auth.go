package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/session"
)

const contextOperatorKey = "operator"

type (
	SignInRequest struct {
		Correo   string `json:"correo" validate:"required,correo"`
		Password string `json:"password" validate:"required"`
	}

	SignUpRequest struct {
		Correo   string `json:"correo" validate:"required,correo"`
		Password string `json:"password" validate:"required,min=6"`
		Nombre   string `json:"nombre"`
		Apellido string `json:"apellido"`
	}

	// SessionResponse describes the operator session without its tokens.
	SessionResponse struct {
		State     string     `json:"state"`
		UserID    string     `json:"user_id,omitempty"`
		Correo    string     `json:"correo,omitempty"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}

	SignUpResponse struct {
		SessionResponse
		ConfirmationRequired bool `json:"confirmation_required"`
	}
)

func (r *SignInRequest) Validate() error {
	r.Correo = core.CleanString(r.Correo, true /* lower */)
	return core.ValidateStruct(r)
}

func (r *SignUpRequest) Validate() error {
	r.Correo = core.CleanString(r.Correo, true /* lower */)
	r.Nombre = core.CleanString(r.Nombre)
	r.Apellido = core.CleanString(r.Apellido)
	return core.ValidateStruct(r)
}

func newSessionResponse(state session.State, s *remote.Session) SessionResponse {
	resp := SessionResponse{State: state.String()}
	if s != nil {
		resp.UserID = s.User.ID
		resp.Correo = s.User.Email
		if !s.ExpiresAt.IsZero() {
			exp := s.ExpiresAt
			resp.ExpiresAt = &exp
		}
	}
	return resp
}

type authApi struct {
	adapter *session.Adapter
}

func registerAuthAPI(g *echo.Group, adapter *session.Adapter) {
	api := authApi{adapter: adapter}

	g.GET("/session", api.session)
	g.POST("/login", api.signIn)
	g.POST("/signup", api.signUp)
	g.POST("/logout", api.signOut)
}

func (api *authApi) session(ctx echo.Context) error {
	sc := api.adapter.Context()
	return ctx.JSON(http.StatusOK, newSessionResponse(sc.State(), sc.Current()))
}

func (api *authApi) signIn(ctx echo.Context) error {
	var data SignInRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	s, err := api.adapter.SignIn(ctx.Request().Context(), data.Correo, data.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(session.Authenticated, s))
}

func (api *authApi) signUp(ctx echo.Context) error {
	var data SignUpRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	metadata := map[string]interface{}{}
	if data.Nombre != "" {
		metadata["nombre"] = data.Nombre
	}
	if data.Apellido != "" {
		metadata["apellido"] = data.Apellido
	}
	s, err := api.adapter.SignUp(ctx.Request().Context(), data.Correo, data.Password, metadata)
	if err != nil {
		return err
	}
	if s == nil {
		sc := api.adapter.Context()
		return ctx.JSON(http.StatusAccepted, SignUpResponse{
			SessionResponse:      newSessionResponse(sc.State(), sc.Current()),
			ConfirmationRequired: true,
		})
	}
	return ctx.JSON(http.StatusCreated, SignUpResponse{SessionResponse: newSessionResponse(session.Authenticated, s)})
}

func (api *authApi) signOut(ctx echo.Context) error {
	if err := api.adapter.SignOut(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// requireSession rejects requests unless an operator is signed in.
func requireSession(sc *session.Context) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			switch sc.State() {
			case session.Authenticated:
				ctx.Set(contextOperatorKey, sc.Operator())
				return next(ctx)
			case session.Unknown:
				return errSessionStarting
			}
			return core.ErrNoSession
		}
	}
}

// contextOperator returns the operator set by requireSession.
func contextOperator(ctx echo.Context) (core.Operator, error) {
	if op, ok := ctx.Get(contextOperatorKey).(core.Operator); ok && op.Email != "" {
		return op, nil
	}
	return core.Operator{}, core.ErrNoSession
}
