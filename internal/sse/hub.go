package sse

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"noticeboard/internal/metrics"
)

const (
	heartbeatInterval     = 30 * time.Second
	backpressureFullLimit = 5
)

// SSEHub fans events out to live feed connections. Both the SSE and the
// WebSocket endpoints register their connections here.
type SSEHub struct {
	clients sync.Map

	logger *zap.Logger
	stopCh chan struct{}
}

func NewHub(logger *zap.Logger) *SSEHub {
	if logger == nil {
		logger = zap.NewNop()
	}

	hub := &SSEHub{
		logger: logger,
		stopCh: make(chan struct{}),
	}

	go hub.startHeartbeat()

	return hub
}

func (h *SSEHub) Register(client *SSEClient) {
	if h == nil || client == nil || client.ID == "" {
		return
	}

	h.clients.Store(client.ID, client)
	metrics.SetFeedClients(h.ConnectedCount())
}

func (h *SSEHub) Unregister(clientID string) {
	if h == nil || clientID == "" {
		return
	}

	value, loaded := h.clients.LoadAndDelete(clientID)
	if !loaded {
		return
	}

	if client, ok := value.(*SSEClient); ok {
		client.Close()
	}
	metrics.SetFeedClients(h.ConnectedCount())
}

func (h *SSEHub) Broadcast(event SSEEvent) {
	if h == nil {
		return
	}

	h.clients.Range(func(_, value interface{}) bool {
		if client, ok := value.(*SSEClient); ok {
			h.dispatch(client, event)
		}
		return true
	})
}

func (h *SSEHub) SendToClient(clientID string, event SSEEvent) {
	if h == nil || clientID == "" {
		return
	}

	value, ok := h.clients.Load(clientID)
	if !ok {
		return
	}

	client, ok := value.(*SSEClient)
	if !ok {
		return
	}

	h.dispatch(client, event)
}

func (h *SSEHub) Close() {
	if h == nil {
		return
	}

	select {
	case <-h.stopCh:
		return
	default:
		close(h.stopCh)
	}

	h.clients.Range(func(key, _ interface{}) bool {
		if id, ok := key.(string); ok {
			h.Unregister(id)
		}
		return true
	})
}

func (h *SSEHub) ConnectedCount() int {
	if h == nil {
		return 0
	}

	count := 0
	h.clients.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func (h *SSEHub) dispatch(client *SSEClient, event SSEEvent) {
	if client == nil {
		return
	}

	select {
	case <-client.Done:
		return
	case client.Ch <- event:
		client.MarkDispatchSuccess()
		return
	default:
	}

	streak := client.MarkDispatchFull()
	replaced := event.Supersedes() && replaceOldest(client, event)
	h.logger.Warn("feed buffer full",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.String("type", event.Type),
		zap.Bool("replaced_oldest", replaced),
		zap.Int32("full_streak", streak),
	)
	if streak >= backpressureFullLimit {
		h.logger.Warn("disconnect slow feed client due to backpressure",
			zap.String("client_id", client.ID),
			zap.Int32("full_streak", streak),
		)
		h.Unregister(client.ID)
	}
}

// replaceOldest makes room for a snapshot by discarding the oldest queued
// event, so a slow reader still ends on the newest collection.
func replaceOldest(client *SSEClient, event SSEEvent) bool {
	select {
	case <-client.Ch:
	default:
	}

	select {
	case <-client.Done:
		return false
	case client.Ch <- event:
		return true
	default:
		return false
	}
}

func (h *SSEHub) startHeartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case now := <-ticker.C:
			h.Broadcast(HeartbeatEvent(now))
		}
	}
}
