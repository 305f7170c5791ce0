package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects
const (
	PredictionsReconciled = "cycle.predictions.reconciled"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

type PredictionsReconciledEvent struct {
	UserID            uint      `json:"user_id"`
	PeriodsCreated    int       `json:"periods_created"`
	OvulationsCreated int       `json:"ovulations_created"`
	StaleRemoved      int64     `json:"stale_removed"`
	ReconciledAt      time.Time `json:"reconciled_at"`
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	conn   Conn
	logger *zap.Logger
}

func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("cycleapp"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewPublisher(conn, logger), nil
}

func NewPublisher(conn Conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

func (publisher *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	publisher.logger.Debug("publishing event", zap.String("subject", subject), zap.ByteString("data", payload))
	if err := publisher.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (publisher *NATSPublisher) Close() error {
	return publisher.conn.Drain()
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

// Connect returns a NATS publisher for url, or a NoopPublisher when url is empty.
func Connect(url string, logger *zap.Logger) (Publisher, error) {
	if url == "" {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(url, logger)
}
