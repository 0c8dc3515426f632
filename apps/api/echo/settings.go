package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

// SettingsResponse is the Configuración page: the session and the operator's own usuarios row, if any.
type SettingsResponse struct {
	Session SessionResponse `json:"session"`
	Profile *user.User      `json:"profile"`
}

type settingsApi struct {
	svc *user.Service
	sc  *session.Context
}

func registerSettingsAPI(g *echo.Group, svc *user.Service, sc *session.Context) {
	api := settingsApi{svc: svc, sc: sc}

	g.GET("/configuracion", api.retrieve)
	g.PUT("/configuracion", api.update)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	op, err := contextOperator(ctx)
	if err != nil {
		return err
	}
	resp := SettingsResponse{Session: newSessionResponse(api.sc.State(), api.sc.Current())}

	usr, err := api.svc.GetByEmail(ctx.Request().Context(), op.Email)
	switch {
	case err == nil:
		resp.Profile = &usr
	case errors.Cause(err) != core.ErrNotFound:
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *settingsApi) update(ctx echo.Context) error {
	op, err := contextOperator(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateProfile
	if err = bindBody(ctx, &data); err != nil {
		return err
	}
	usr, err := api.svc.UpdateProfile(ctx.Request().Context(), op.Email, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}
