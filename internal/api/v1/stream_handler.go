package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"noticeboard/internal/api/middleware"
	"noticeboard/internal/api/response"
	"noticeboard/internal/service"
	"noticeboard/internal/sse"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingInterval   = 45 * time.Second
	wsMaxMessageSize = 4096
)

// StreamFrame is one WebSocket message on the notice feed.
type StreamFrame struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type StreamHandler struct {
	notices  *service.NoticeService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewStreamHandler(notices *service.NoticeService, opts Options) *StreamHandler {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" && trimmed != "*" {
			allowed[trimmed] = struct{}{}
		}
	}

	return &StreamHandler{
		notices: notices,
		logger:  opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func RegisterStreamRoutes(group *gin.RouterGroup, notices *service.NoticeService, authRequired gin.HandlerFunc, opts Options) {
	if notices == nil {
		return
	}

	handler := NewStreamHandler(notices, opts)
	group.GET("/notices/stream", authRequired, handler.Events)
	group.GET("/notices/ws", authRequired, handler.WebSocket)
}

// Events streams notice snapshots as Server-Sent Events. The first event is
// the current snapshot.
func (h *StreamHandler) Events(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "stream unsupported")
		return
	}

	client, err := h.notices.Subscribe(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Warn("subscribe notice stream failed", zap.Error(err))
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "Error loading notices")
		return
	}
	defer h.notices.Unsubscribe(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-client.Done:
			return
		case event := <-client.Ch:
			if err := writeSSEEvent(c, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// WebSocket streams the same snapshots as JSON frames.
func (h *StreamHandler) WebSocket(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client, err := h.notices.Subscribe(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Warn("subscribe notice websocket failed", zap.Error(err))
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Error loading notices"),
			time.Now().Add(wsWriteWait),
		)
		_ = conn.Close()
		return
	}

	go h.readPump(conn, client)
	h.writePump(conn, client)
}

func (h *StreamHandler) writePump(conn *websocket.Conn, client *sse.SSEClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		h.notices.Unsubscribe(client)
		_ = conn.Close()
	}()

	for {
		select {
		case <-client.Done:
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait),
			)
			return
		case event := <-client.Ch:
			if event.Type == sse.EventHeartbeat {
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			frame := StreamFrame{ID: event.ID, Type: event.Type, Data: event.Data}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// readPump only watches for pongs and the peer closing the connection.
func (h *StreamHandler) readPump(conn *websocket.Conn, client *sse.SSEClient) {
	defer h.notices.Unsubscribe(client)

	conn.SetReadLimit(wsMaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeSSEEvent(c *gin.Context, event sse.SSEEvent) error {
	if _, err := fmt.Fprintf(c.Writer, "id: %s\n", event.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event.Type); err != nil {
		return err
	}

	for _, line := range strings.Split(string(event.Data), "\n") {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n", line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprint(c.Writer, "\n")
	return err
}
