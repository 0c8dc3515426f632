package echoapi

import (
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/session"
)

type chatApi struct {
	svc      *chat.Service
	sc       *session.Context
	upgrader websocket.Upgrader
}

func registerChatAPI(g *echo.Group, svc *chat.Service, sc *session.Context) {
	api := chatApi{
		svc: svc,
		sc:  sc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}

	cg := g.Group("/chat")
	cg.GET("", api.latest)
	cg.POST("", api.post)
	cg.GET("/ws", api.live)
}

// sameOrigin accepts requests without Origin (non-browser clients) or from the serving host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (api *chatApi) latest(ctx echo.Context) error {
	msgs, err := api.svc.Latest(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) post(ctx echo.Context) error {
	op, err := contextOperator(ctx)
	if err != nil {
		return err
	}
	var data chat.Form
	if err = bindBody(ctx, &data); err != nil {
		return err
	}
	msg, err := api.svc.Post(ctx.Request().Context(), op.Email, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

// live upgrades to a websocket fed with the messages posted by anyone.
func (api *chatApi) live(ctx echo.Context) error {
	op, err := contextOperator(ctx)
	if err != nil {
		return err
	}
	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	api.svc.Serve(conn, op.Email)
	return nil
}
