package changefeed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestLocal_PublishReachesSubscriber(t *testing.T) {
	t.Parallel()

	feed := NewLocal(nil)
	got := make(chan Change, 1)
	feed.Subscribe(func(c Change) { got <- c })

	if err := feed.Publish(context.Background(), Change{NoticeID: "n1", Action: "create"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case c := <-got:
		if c.NoticeID != "n1" || c.Action != "create" {
			t.Fatalf("unexpected change %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestRedis_RelaysAcrossReplicas(t *testing.T) {
	client := startRedisForTest(t)

	publisher := NewRedis(client, "test:notices", nil, nil)
	receiver := NewRedis(client, "test:notices", nil, nil)

	got := make(chan Change, 1)
	receiver.Subscribe(func(c Change) { got <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = receiver.Run(ctx)
	}()

	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case c := <-got:
			if c.NoticeID != "n42" {
				t.Fatalf("unexpected change %+v", c)
			}
			return
		case <-ticker.C:
			// Run subscribes asynchronously; keep publishing until it is listening.
			if err := publisher.Publish(ctx, Change{NoticeID: "n42", Action: "create"}); err != nil {
				t.Fatalf("Publish: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for relayed change")
		}
	}
}

func startRedisForTest(t *testing.T) *redis.Client {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
