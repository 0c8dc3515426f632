package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

const (
	xlsxMIME        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilename  = "estudiantes.xlsx"
	avatarFormField = "avatar"
	maxAvatarSize   = 2 << 20
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/estudiantes")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/export.xlsx", api.export)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
	sg.POST("/:id/avatar", api.uploadAvatar)
}

func bindStudentFilter(ctx echo.Context) (student.QueryFilter, error) {
	var qf student.QueryFilter
	err := echo.QueryParamsBinder(ctx).
		String("search", &qf.Search).
		String("estado", &qf.Estado).
		BindError()
	return qf, err
}

func (api *studentApi) query(ctx echo.Context) error {
	qf, err := bindStudentFilter(ctx)
	if err != nil {
		return err
	}
	listing, err := api.svc.List(ctx.Request().Context(), qf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, listing)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.Form
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	var data student.Form
	if err = bindBody(ctx, &data); err != nil {
		return err
	}
	s, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id, confirmed(ctx)); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// export downloads the filtered students as a spreadsheet.
func (api *studentApi) export(ctx echo.Context) error {
	qf, err := bindStudentFilter(ctx)
	if err != nil {
		return err
	}
	listing, err := api.svc.List(ctx.Request().Context(), qf)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = student.Export(&buf, listing.Students); err != nil {
		return errors.Wrap(err, "exporting students")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFilename+`"`)
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (api *studentApi) uploadAvatar(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile(avatarFormField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: avatarFormField, Error: "seleccione una imagen"})
	}
	if fh.Size > maxAvatarSize {
		return core.NewValidationError(nil, core.FieldError{Field: avatarFormField, Error: "la imagen no puede superar 2 MB"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening avatar")
	}
	defer func() { _ = f.Close() }()

	s, err := api.svc.SetAvatar(ctx.Request().Context(), id, fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
