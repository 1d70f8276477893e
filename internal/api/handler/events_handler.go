package handler

import (
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 25 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// EventHandler streams job events to SSE and WebSocket clients
type EventHandler struct {
	logger   *slog.Logger
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

func NewEventHandler(deps *Dependencies) *EventHandler {
	h := &EventHandler{
		logger: deps.Logger,
		hub:    deps.Hub,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originAllowed(deps.AllowedOrigins),
	}
	return h
}

// originAllowed accepts requests without an Origin header and those whose
// origin is listed. A "*" entry allows everything.
func originAllowed(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// Stream handles GET /api/v1/events
func (h *EventHandler) Stream(c *gin.Context) {
	sub := h.hub.Subscribe()
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// WebSocket handles GET /ws
func (h *EventHandler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go h.readPump(conn, done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("WebSocket write failed",
					slog.String("subscriber_id", sub.ID),
					slog.String("error", err.Error()),
				)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
// It closes done when the connection goes away or stops answering pings.
func (h *EventHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
