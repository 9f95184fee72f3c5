package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rangeguard/zone-conflict-notifier/internal/config"
	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
)

// Writer publishes notifications to a Kafka topic, keyed by recipient so
// each user's notifications stay ordered.
// It implements fanout.NotificationSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Append stamps d as a new notification and publishes it.
func (w *Writer) Append(ctx context.Context, d domain.NotificationDraft) error {
	msg, err := serializeToMessage(domain.NewNotification(d))
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification for %s: %w", d.RecipientID, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Notification into a Kafka message.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.RecipientID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "notification_id", Value: []byte(n.ID)},
			{Key: "category", Value: []byte(n.Category)},
			{Key: "created_at", Value: []byte(n.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
