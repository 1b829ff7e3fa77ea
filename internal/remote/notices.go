package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"noticeboard/internal/controller"
	"noticeboard/internal/model"
)

const (
	snapshotFrame  = "notices.snapshot"
	wsWriteWait    = 10 * time.Second
	wsReadWait     = 90 * time.Second
	wsHandshake    = 10 * time.Second
	maxRetryFactor = 30
)

type streamFrame struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Notices struct {
	client    *Client
	logger    *zap.Logger
	retryBase time.Duration
}

func NewNotices(client *Client) *Notices {
	return &Notices{client: client, logger: client.logger, retryBase: time.Second}
}

// Add publishes a notice. The hub fills in the author and timestamps from the
// session, so only the draft part is sent.
func (n *Notices) Add(ctx context.Context, notice model.Notice) error {
	draft := model.NoticeDraft{
		Title:      notice.Title,
		Content:    notice.Content,
		IsEvent:    notice.IsEvent,
		Category:   notice.Category,
		Importance: notice.Importance,
		Tags:       notice.Tags,
	}
	if draft.Tags == nil {
		draft.Tags = []string{}
	}
	return n.client.do(ctx, http.MethodPost, "/notices", nil, draft, nil)
}

func (n *Notices) List(ctx context.Context) ([]model.Notice, error) {
	var notices []model.Notice
	if err := n.client.do(ctx, http.MethodGet, "/notices", nil, nil, &notices); err != nil {
		return nil, err
	}
	return notices, nil
}

func (n *Notices) Search(ctx context.Context, query string, page, pageSize int) ([]model.Notice, error) {
	params := url.Values{}
	params.Set("q", query)
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}

	var notices []model.Notice
	if err := n.client.do(ctx, http.MethodGet, "/notices/search", params, nil, &notices); err != nil {
		return nil, err
	}
	return notices, nil
}

// Subscribe opens the live notice stream. The subscription reconnects on its
// own and reports every broken connection as an error snapshot. Only the
// latest undelivered snapshot is kept.
func (n *Notices) Subscribe(ctx context.Context) (controller.Subscription, error) {
	token := n.client.Token()
	if token == "" {
		return nil, ErrNotSignedIn
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan controller.Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go n.run(subCtx, sub)
	return sub, nil
}

func (n *Notices) run(ctx context.Context, sub *subscription) {
	defer close(sub.done)

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for {
		connected, err := n.stream(ctx, sub)
		if ctx.Err() != nil {
			return
		}
		if connected {
			attempt = 0
		}
		n.logger.Warn("notice stream dropped", zap.Error(err), zap.Int("attempt", attempt))
		if !sub.deliver(ctx, controller.Snapshot{Err: err}) {
			return
		}

		timer := time.NewTimer(n.backoffDelay(rnd, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		attempt++
	}
}

// stream runs one connection until it fails. connected reports whether the
// handshake succeeded.
func (n *Notices) stream(ctx context.Context, sub *subscription) (connected bool, err error) {
	conn, err := n.dial(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait),
			)
			_ = conn.Close()
		case <-stop:
		}
	}()

	if err := conn.SetReadDeadline(time.Now().Add(wsReadWait)); err != nil {
		return true, err
	}
	conn.SetPingHandler(func(data string) error {
		if err := conn.SetReadDeadline(time.Now().Add(wsReadWait)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(wsWriteWait))
	})

	for {
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return true, fmt.Errorf("read notice stream: %w", err)
		}
		if err := conn.SetReadDeadline(time.Now().Add(wsReadWait)); err != nil {
			return true, err
		}
		if frame.Type != snapshotFrame {
			continue
		}

		var notices []model.Notice
		if err := json.Unmarshal(frame.Data, &notices); err != nil {
			n.logger.Warn("decode notice snapshot failed", zap.String("event_id", frame.ID), zap.Error(err))
			continue
		}
		if !sub.deliver(ctx, controller.Snapshot{Notices: notices}) {
			return true, ctx.Err()
		}
	}
}

func (n *Notices) dial(ctx context.Context) (*websocket.Conn, error) {
	token := n.client.Token()
	if token == "" {
		return nil, ErrNotSignedIn
	}

	wsURL, err := websocketURL(n.client.endpoint("/notices/ws", nil))
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshake}
	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial notice stream: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial notice stream: %w", err)
	}
	return conn, nil
}

func (n *Notices) backoffDelay(rnd *rand.Rand, attempt int) time.Duration {
	factor := math.Min(float64(int64(1)<<uint(min(attempt, 10))), maxRetryFactor)
	jitter := factor * 0.2 * (2*rnd.Float64() - 1)
	return time.Duration((factor + jitter) * float64(n.retryBase))
}

func websocketURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	return parsed.String(), nil
}

type subscription struct {
	ch        chan controller.Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Snapshots() <-chan controller.Snapshot {
	return s.ch
}

// Close stops the stream and waits for the connection to shut down.
func (s *subscription) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done
	return nil
}

// deliver replaces any snapshot the reader has not taken yet. It is only
// called from the stream goroutine.
func (s *subscription) deliver(ctx context.Context, snapshot controller.Snapshot) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case s.ch <- snapshot:
			return true
		default:
		}

		select {
		case <-s.ch:
		default:
		}
	}
}
