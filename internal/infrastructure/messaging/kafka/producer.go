// Package kafka publishes release events so downstream consumers (depiction
// rendering, search indexing) learn about newly assembled model sets without
// polling the cache directory.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/xtalforge/ccmodel/internal/config"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

// ReleaseEvent announces one completed assembly run.
type ReleaseEvent struct {
	EventID      string    `json:"event_id"`
	ReleaseDate  string    `json:"release_date"`
	ArtifactPath string    `json:"artifact_path"`
	ModelCount   int       `json:"model_count"`
	ReusedCount  int       `json:"reused_count"`
	MintedCount  int       `json:"minted_count"`
	EmittedAt    time.Time `json:"emitted_at"`
}

// Producer writes release events to the configured topic.
type Producer struct {
	writer *kafkago.Writer
	logger logging.Logger
}

// NewProducer constructs a Producer.  logger may be nil.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.LeastBytes{},
			WriteTimeout: cfg.WriteTimeout,
			RequiredAcks: kafkago.RequireAll,
		},
		logger: logger,
	}
}

// PublishRelease emits one release event.  The event id is minted here so
// retries by the caller stay distinguishable from distinct releases.
func (p *Producer) PublishRelease(ctx context.Context, event ReleaseEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodePublishError, "serialise release event")
	}

	msg := kafkago.Message{
		Key:   []byte(event.ReleaseDate),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return apperrors.Wrap(err, apperrors.CodePublishError, "publish release event").WithDetail(event.EventID)
	}

	p.logger.Info("release event published",
		logging.String("event_id", event.EventID),
		logging.Int("models", event.ModelCount))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error { return p.writer.Close() }
