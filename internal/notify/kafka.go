package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertEvent is the JSON value of one published alert message
type AlertEvent struct {
	Query     string          `json:"query"`
	Company   string          `json:"company"`
	Type      model.AlertType `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// KafkaPublisher streams alerts to a Kafka topic keyed by company
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for the configured brokers and topic
func NewKafkaPublisher(cfg model.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(writer messageWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		now:    time.Now,
		logger: logging.OrNop(logger),
	}
}

// Publish writes one message per alert. Nothing is written for an empty batch.
func (p *KafkaPublisher) Publish(ctx context.Context, query string, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ts := p.now().UTC()
	msgs := make([]kafka.Message, 0, len(alerts))
	for _, a := range alerts {
		value, err := json.Marshal(AlertEvent{
			Query:     query,
			Company:   a.Company,
			Type:      a.Type,
			Message:   a.Message,
			Timestamp: ts,
		})
		if err != nil {
			return fmt.Errorf("marshal alert: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(a.Company),
			Value: value,
			Headers: []kafka.Header{
				{Key: "alert_type", Value: []byte(a.Type)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}

	p.logger.Debug("published alerts", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
