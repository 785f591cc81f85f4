package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/ws"
)

// WSHandler подключает клиентов к live-ленте оповещений.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler: allowedOrigins ограничивает браузерные подключения, "*" разрешает все.
// Запросы без Origin (не из браузера) принимаются всегда.
func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	_, allowAny := allowed["*"]

	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAny {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/alerts/ws.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrader уже записал ответ с ошибкой.
		logger.Log.WithError(err).Debug("WebSocket upgrade не удался")
		return
	}

	client := ws.NewClient(conn, h.hub)
	logger.Log.WithField("client_id", client.ID().String()).Info("WebSocket клиент подключён")
	client.Serve()
}
