package usecase

import (
	"context"
	"encoding/json"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	pkgkafka "DemandCast/pkg/kafka"
)

// KafkaSalesHandler consumes sales events from Kafka and writes them to storage.
type KafkaSalesHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaSalesHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaSalesHandler {
	return &KafkaSalesHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaSalesHandler) Topic() string { return h.topic }

// incoming message schema: {item_id, store_id, qty, t}
func (h *KafkaSalesHandler) Handle(ctx context.Context, b []byte) error {
	var e models.SalesEvent
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if e.Timestamp > 1e11 { // ms
		e.Timestamp = e.Timestamp / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(e.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &e)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordIngest("clickhouse", e.StoreID)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSalesHandler)(nil)
