// Package stream publishes generated alerts to Kafka so downstream consumers
// (notification routers, dashboards) see them without polling the API. The
// comparison engine itself never touches the network; publishing happens in
// the service layer after a pass completes.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fleetrank/fleetrank/internal/models"
)

// Publisher delivers the alerts produced for one device.
type Publisher interface {
	PublishAlerts(ctx context.Context, deviceID string, alerts []models.AlertRecord) error
	Close() error
}

// NopPublisher drops everything. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishAlerts(ctx context.Context, deviceID string, alerts []models.AlertRecord) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

// KafkaConfig contains the tunable parameters for the Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string

	// MaxAttempts bounds per-message retries on transient errors. Defaults
	// to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout. Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// KafkaPublisher wraps a kafka-go Writer with bounded produce-with-retries.
// Messages are keyed by device ID so one device's alerts stay ordered within
// a partition.
type KafkaPublisher struct {
	writer      *kafka.Writer
	maxAttempts int
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})
	return &KafkaPublisher{writer: w, maxAttempts: cfg.MaxAttempts}, nil
}

type alertEnvelope struct {
	DeviceID string               `json:"deviceId"`
	Alerts   []models.AlertRecord `json:"alerts"`
	SentAt   time.Time            `json:"sentAt"`
}

func (p *KafkaPublisher) PublishAlerts(ctx context.Context, deviceID string, alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}
	value, err := json.Marshal(alertEnvelope{
		DeviceID: deviceID,
		Alerts:   alerts,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert envelope: %w", err)
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		msg := kafka.Message{
			Key:   []byte(deviceID),
			Value: value,
			Time:  time.Now().UTC(),
		}
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("publish alerts failed after %d attempts: %w", p.maxAttempts, lastErr)
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
