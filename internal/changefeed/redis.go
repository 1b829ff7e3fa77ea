package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "noticeboard:notices"

// Redis relays changes through a pub/sub channel so every hub replica
// re-broadcasts snapshots to its own connections.
type Redis struct {
	client  *redis.Client
	channel string
	local   *Local
	logger  *zap.Logger
}

func NewRedis(client *redis.Client, channel string, local *Local, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if local == nil {
		local = NewLocal(nil)
	}
	return &Redis{client: client, channel: channel, local: local, logger: logger}
}

var _ Feed = (*Redis)(nil)

func (r *Redis) Publish(ctx context.Context, change Change) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notice change: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(handler func(Change)) {
	r.local.Subscribe(handler)
}

// Run relays channel messages to local listeners until ctx is cancelled.
func (r *Redis) Run(ctx context.Context) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}

	pubsub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("notice change relay subscribed", zap.String("channel", r.channel))

	messages := pubsub.Channel(redis.WithChannelHealthCheckInterval(30 * time.Second))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				r.logger.Warn("drop malformed notice change", zap.Error(err))
				continue
			}
			_ = r.local.Publish(ctx, change)
		}
	}
}
