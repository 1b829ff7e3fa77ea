package sse

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const clientBufferSize = 16

type SSEClient struct {
	ID     string
	UserID string
	Ch     chan SSEEvent
	Done   chan struct{}

	fullStreak atomic.Int32
	closeOnce  sync.Once
}

// NewClient creates a connection-scoped client. One user may hold several.
func NewClient(userID string) *SSEClient {
	return &SSEClient{
		ID:     uuid.NewString(),
		UserID: userID,
		Ch:     make(chan SSEEvent, clientBufferSize),
		Done:   make(chan struct{}),
	}
}

func (c *SSEClient) Close() {
	if c == nil {
		return
	}

	c.closeOnce.Do(func() {
		close(c.Done)
	})
}

func (c *SSEClient) MarkDispatchSuccess() {
	if c == nil {
		return
	}
	c.fullStreak.Store(0)
}

func (c *SSEClient) MarkDispatchFull() int32 {
	if c == nil {
		return 0
	}
	return c.fullStreak.Add(1)
}
