package sse

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	EventHeartbeat      = "heartbeat"
	EventNoticeSnapshot = "notices.snapshot"
)

// SSEEvent is one message on a live feed connection. Data is already JSON so
// the SSE and WebSocket writers pass it through untouched.
type SSEEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var lastEventID atomic.Int64

func NewEvent(eventType string, payload any) SSEEvent {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}

	return SSEEvent{
		ID:   strconv.FormatInt(lastEventID.Add(1), 10),
		Type: eventType,
		Data: data,
	}
}

// SnapshotEvent carries the whole notice collection. A nil slice is sent as
// an empty array so clients can tell "no notices" from a broken payload.
func SnapshotEvent[T any](notices []T) SSEEvent {
	if notices == nil {
		notices = []T{}
	}
	return NewEvent(EventNoticeSnapshot, notices)
}

func HeartbeatEvent(now time.Time) SSEEvent {
	return NewEvent(EventHeartbeat, map[string]string{
		"ts": now.UTC().Format(time.RFC3339Nano),
	})
}

// Supersedes reports whether the event replaces everything queued before it.
// Snapshots do; heartbeats only keep the connection warm.
func (e SSEEvent) Supersedes() bool {
	return e.Type == EventNoticeSnapshot
}
