package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestBlobLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.DraftKey("procurement_request", "PR-001")

	if _, found, err := client.LoadBlob(ctx, key); err != nil || found {
		t.Fatalf("expected miss without error, found=%v err=%v", found, err)
	}

	if err := client.SaveBlob(ctx, key, []byte(`{"mode":"edit"}`), time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	raw, found, err := client.LoadBlob(ctx, key)
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if string(raw) != `{"mode":"edit"}` {
		t.Fatalf("unexpected blob %s", raw)
	}
	if mock.ttls[key] != time.Hour {
		t.Fatalf("expected ttl to be forwarded, got %v", mock.ttls[key])
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, found, _ := client.LoadBlob(ctx, key); found {
		t.Fatalf("expected blob gone after delete")
	}
}

func TestLoadBlobPropagatesErrors(t *testing.T) {
	mock := newMockCmdable()
	mock.getErr = fmt.Errorf("connection reset")
	client := &Client{store: mock}

	if _, _, err := client.LoadBlob(context.Background(), "k"); err == nil {
		t.Fatalf("expected transport error to propagate")
	}
}

func TestLockLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.InFlightKey("sent_back", "SB-9", "proceed")

	ok, err := client.AcquireLock(ctx, key, 30*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = client.AcquireLock(ctx, key, 30*time.Second)
	if err != nil || ok {
		t.Fatalf("expected second acquire to fail, ok=%v err=%v", ok, err)
	}
	held, err := client.Locked(ctx, key)
	if err != nil || !held {
		t.Fatalf("expected lock held, held=%v err=%v", held, err)
	}

	if err := client.ReleaseLock(ctx, key); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if held, _ := client.Locked(ctx, key); held {
		t.Fatalf("expected lock released")
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, _, err := client.LoadBlob(context.Background(), "k"); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without raw client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.DraftKey("procurement_request", "PR-1"); got != "proc:rfq_draft:procurement_request:PR-1" {
		t.Fatalf("unexpected draft key %s", got)
	}
	if got := client.PaymentTermsKey("sent_back", "SB-1"); got != "proc:payment_terms:sent_back:SB-1" {
		t.Fatalf("unexpected payment terms key %s", got)
	}
	if got := client.InFlightKey("sent_back", "SB-1", "submit"); got != "proc:inflight:sent_back:SB-1:submit" {
		t.Fatalf("unexpected in-flight key %s", got)
	}
	if got := client.DraftKey("", "PR-1"); got != "proc:rfq_draft:PR-1" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
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
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
