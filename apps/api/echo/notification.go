package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type notificationApi struct {
	auth     *jwtAuth
	svc      *notification.Service
	logger   core.Logger
	upgrader websocket.Upgrader
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *notification.Service, logger core.Logger) {
	api := notificationApi{
		auth:   auth,
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the token is the credential; origins are not checked
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	ng := g.Group("/notifications")
	// browsers cannot set headers on websocket requests: the token comes in the query
	ng.GET("/ws", api.stream)

	ag := ng.Group("", jwt)
	ag.GET("/list", api.list)
	ag.PUT("/read/:id", api.markRead)
}

func (api *notificationApi) list(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	notifs, err := api.svc.List(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkRead(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return ctx.JSON(http.StatusOK, n)
}

// stream pushes the notifications published on the caller's topics over a websocket.
func (api *notificationApi) stream(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return errUnauthorized
	}
	claims, err := api.auth.parse(token)
	if err != nil {
		return err
	}
	p, err := claims.Principal()
	if err != nil {
		return errUnauthorized
	}
	ctx.Set(contextPrincipalKey, p)

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		api.logger.Warn("upgrading to websocket", err)
		return nil
	}
	//goland:noinspection GoUnhandledErrorResult
	defer conn.Close()

	reqCtx, cancel := context.WithCancel(ctx.Request().Context())
	defer cancel()

	sub, err := api.svc.Subscribe(reqCtx, p)
	if err != nil {
		api.logger.Error("subscribing to notifications", err, p)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(wsWriteWait))
		return nil
	}
	//goland:noinspection GoUnhandledErrorResult
	defer sub.Close()

	// read pump: only handles pongs and detects the client going away
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
