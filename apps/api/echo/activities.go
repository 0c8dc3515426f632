package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/activity"
)

type activityApi struct {
	svc *activity.Service
}

func registerActivityAPI(g *echo.Group, svc *activity.Service) {
	api := activityApi{svc: svc}

	ag := g.Group("/actividades")
	ag.GET("", api.query)
	ag.GET("/:id", api.edit)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)

	g.GET("/crear-actividad", api.new)
	g.POST("/crear-actividad", api.create)
}

func (api *activityApi) query(ctx echo.Context) error {
	var qf activity.QueryFilter
	err := echo.QueryParamsBinder(ctx).
		String("search", &qf.Search).
		String("tipo", &qf.Tipo).
		String("estado", &qf.Estado).
		Int64("grupo_id", &qf.GrupoID).
		BindError()
	if err != nil {
		return err
	}
	listing, err := api.svc.List(ctx.Request().Context(), qf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, listing)
}

// edit is the EditarActividad page.
func (api *activityApi) edit(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	ed, err := api.svc.Editor(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ed)
}

// new is the CrearActividad page.
func (api *activityApi) new(ctx echo.Context) error {
	ed, err := api.svc.Editor(ctx.Request().Context(), 0)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ed)
}

func (api *activityApi) create(ctx echo.Context) error {
	var data activity.Form
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *activityApi) update(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	var data activity.Form
	if err = bindBody(ctx, &data); err != nil {
		return err
	}
	a, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *activityApi) destroy(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id, confirmed(ctx)); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
