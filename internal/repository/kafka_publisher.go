package repository

import (
	"context"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"
	pkgkafka "DemandCast/pkg/kafka"
)

// KafkaEventPublisher implements EventPublisher for Kafka.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates a Kafka publisher for raw sales events.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, e *models.SalesEvent) error {
	key := models.SeriesKey{ItemID: e.ItemID, StoreID: e.StoreID}
	return p.producer.Publish(ctx, p.topic, []byte(key.String()), e)
}

func (p *KafkaEventPublisher) PublishBatch(ctx context.Context, events []*models.SalesEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		key := models.SeriesKey{ItemID: e.ItemID, StoreID: e.StoreID}
		msgs[i] = pkgkafka.Message{
			Key:   []byte(key.String()),
			Value: e,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaForecastPublisher implements ForecastPublisher for Kafka.
type KafkaForecastPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaForecastPublisher creates a Kafka publisher for completed forecasts.
func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) repository.ForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) PublishForecast(ctx context.Context, f *models.Forecast) error {
	key := models.SeriesKey{ItemID: f.ItemID, StoreID: f.StoreID}
	return p.producer.Publish(ctx, p.topic, []byte(key.String()), f)
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
