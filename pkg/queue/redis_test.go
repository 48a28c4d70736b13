package queue

import (
	"context"
	"encoding/json"
	"testing"

	"DemandCast/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	return NewRedisQueue(log, nil, client, WithKeyPrefix("test:queue"))
}

func TestNewRedisQueueDefaults(t *testing.T) {
	q := newTestQueue(t)

	if q.config.Workers != 1 {
		t.Errorf("workers = %d, want 1", q.config.Workers)
	}
	if q.config.RetryDelay <= 0 {
		t.Errorf("retry delay not defaulted")
	}
	if q.queueKey() != "test:queue:messages" {
		t.Errorf("queue key = %q", q.queueKey())
	}
	if q.dlqKey() != "test:queue:dlq" {
		t.Errorf("dlq key = %q", q.dlqKey())
	}
}

func TestEnqueueRequiresRunningQueue(t *testing.T) {
	q := newTestQueue(t)

	if err := q.Enqueue(context.Background(), "forecast", nil); err == nil {
		t.Errorf("Enqueue on stopped queue succeeded")
	}
}

func TestRawPayloadConvertsMaps(t *testing.T) {
	got := rawPayload(map[string]interface{}{"horizon": 7})
	raw, ok := got.(json.RawMessage)
	if !ok {
		t.Fatalf("payload type = %T, want json.RawMessage", got)
	}

	var decoded struct {
		Horizon int `json:"horizon"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Horizon != 7 {
		t.Errorf("horizon = %d, want 7", decoded.Horizon)
	}

	if s := rawPayload("plain"); s != "plain" {
		t.Errorf("non-map payload changed: %v", s)
	}
}
