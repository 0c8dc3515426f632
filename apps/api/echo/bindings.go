package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const confirmParam = "confirm"

// bindID reads the :id path parameter.
func bindID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// confirmed reports whether a destructive request carries ?confirm=true.
func confirmed(ctx echo.Context) bool {
	ok, _ := strconv.ParseBool(ctx.QueryParam(confirmParam))
	return ok
}

func bindBody(ctx echo.Context, dest interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, dest); err != nil {
		return errors.Wrap(err, "binding body")
	}
	return nil
}
