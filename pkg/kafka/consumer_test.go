package kafka

import (
	"context"
	"testing"
	"time"
)

type topicHandler struct{ topic string }

func (h topicHandler) Topic() string                        { return h.topic }
func (h topicHandler) Handle(context.Context, []byte) error { return nil }

func TestRegisterHandlerKeepsFirst(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}

	first := topicHandler{topic: "sales"}
	c.RegisterHandler(first)
	c.RegisterHandler(topicHandler{topic: "sales"})

	if len(c.handlers) != 1 {
		t.Fatalf("handlers = %d, want 1", len(c.handlers))
	}
	if c.handlers["sales"] != MessageHandler(first) {
		t.Errorf("duplicate registration replaced the original handler")
	}
}

func TestPartitionLockIsStable(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}

	a := c.partitionLock("sales", 0)
	b := c.partitionLock("sales", 0)
	if a != b {
		t.Errorf("same topic/partition returned different locks")
	}
	if c.partitionLock("sales", 1) == a {
		t.Errorf("different partitions share a lock")
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min := 50 * time.Millisecond
	max := 2 * time.Second

	for attempt := 1; attempt <= 8; attempt++ {
		for i := 0; i < 20; i++ {
			d := backoffWithJitter(min, max, attempt)
			if d <= 0 {
				t.Fatalf("attempt %d: backoff %v <= 0", attempt, d)
			}
			if d > max {
				t.Fatalf("attempt %d: backoff %v exceeds max %v", attempt, d, max)
			}
		}
	}
}
