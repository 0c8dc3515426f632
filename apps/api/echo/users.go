package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

type userApi struct {
	svc   *user.Service
	roles *role.Service
	sc    *session.Context
}

func registerUserAPI(g *echo.Group, svc *user.Service, roles *role.Service, sc *session.Context) {
	api := userApi{svc: svc, roles: roles, sc: sc}

	ug := g.Group("/usuarios")
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.GET("/roles", api.queryRoles)
	ug.GET("/:id", api.retrieve)
	ug.PUT("/:id", api.update)
	ug.DELETE("/:id", api.destroy)
}

func bindUserFilter(ctx echo.Context) (user.QueryFilter, error) {
	var qf user.QueryFilter
	err := echo.QueryParamsBinder(ctx).
		String("search", &qf.Search).
		Int64("rol_id", &qf.RolID).
		BindError()
	if err != nil {
		return qf, err
	}
	if v := ctx.QueryParam("activo"); v != "" {
		activo, err := strconv.ParseBool(v)
		if err != nil {
			return qf, core.NewValidationError(err, core.FieldError{Field: "activo", Error: "valor inválido"})
		}
		qf.Activo = &activo
	}
	return qf, nil
}

func (api *userApi) query(ctx echo.Context) error {
	qf, err := bindUserFilter(ctx)
	if err != nil {
		return err
	}
	listing, err := api.svc.List(ctx.Request().Context(), qf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, listing)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateUser
	if err = bindBody(ctx, &data); err != nil {
		return err
	}
	usr, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	// the operator cannot delete their own row
	if confirmed(ctx) {
		usr, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return err
		}
		if usr.Correo == api.sc.Email() {
			return errHttpForbidden
		}
	}

	if err = api.svc.Delete(ctx.Request().Context(), id, confirmed(ctx)); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	roles, err := api.roles.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, roles)
}
