package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rinhapay/payment-router/pkg/config"
)

func TestStateValueLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.StateKey("default_payment_processor_status")
	if err := client.Set(ctx, key, `{"failing":false}`, 5*time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mock.ttls[key] != 5*time.Second {
		t.Fatalf("expected ttl to be forwarded, got %v", mock.ttls[key])
	}
	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != `{"failing":false}` {
		t.Fatalf("unexpected value %q", got)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on empty client to fail")
	}
	if _, err := client.XAdd(context.Background(), "s", map[string]any{"a": 1}); err == nil {
		t.Fatal("expected xadd on empty client to fail")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.StateKey("default_payment_processor_status"); got != "pr:state:default_payment_processor_status" {
		t.Fatalf("unexpected state key %s", got)
	}
	if got := client.buildKey("state", "", "x"); got != "pr:state:x" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
	if got := client.buildKey(); got != "pr" {
		t.Fatalf("unexpected bare namespace %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected missing url and address to fail")
	}

	opts, err := optionsFromConfig(config.RedisConfig{
		Address:     "redis:6379",
		PoolSize:    50,
		DialTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "redis:6379" || opts.PoolSize != 50 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://cache:6380/2", PoolSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.PoolSize != 10 {
		t.Fatalf("unexpected parsed options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestOptionsFromConfigFillsFieldsMissingFromURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:          "redis://cache:6379/0?pool_size=7",
		DB:           3,
		PoolSize:     50,
		ReadTimeout:  2 * time.Second,
		MinIdleConns: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.PoolSize != 7 {
		t.Fatalf("expected url pool size to win, got %d", opts.PoolSize)
	}
	if opts.DB != 3 || opts.MinIdleConns != 4 || opts.ReadTimeout != 2*time.Second {
		t.Fatalf("expected config to fill unset fields, got %+v", opts)
	}

	if _, err := optionsFromConfig(config.RedisConfig{URL: "http://not-redis"}); err == nil {
		t.Fatal("expected non-redis scheme to fail")
	}
}

func TestIsNil(t *testing.T) {
	if !IsNil(redis.Nil) || !IsNil(fmt.Errorf("get: %w", redis.Nil)) {
		t.Fatal("expected wrapped redis.Nil to be detected")
	}
	if IsNil(errors.New("boom")) || IsNil(nil) {
		t.Fatal("unexpected nil detection")
	}
}
