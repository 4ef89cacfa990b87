package api

import (
	"net/http"

	"taskpay_backend/internal/notifier"
	"taskpay_backend/pkg/auth"
	"taskpay_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type eventRoutes struct {
	hub *notifier.Hub
	a   *auth.JWTAuth
}

func NewEventRoutes(handler *gin.RouterGroup, hub *notifier.Hub, a *auth.JWTAuth) {
	r := &eventRoutes{hub: hub, a: a}

	h := handler.Group("/ws")
	h.Use(a.Middleware())

	h.GET("/", r.handleWebSocket)
}

func (r *eventRoutes) handleWebSocket(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Logger().Error("websocket upgrade failed", zap.Error(err))
		return
	}

	r.hub.Subscribe(session.ID, session.IsAdmin, conn)
}
