// Package events publishes ingestion lifecycle events over NATS.
//
// Publishing is best-effort: a slow or absent broker must never fail an
// upload that already committed to the vector store. When no NATS URL is
// configured the publisher is disabled and every call is a no-op.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectIngestCompleted is the subject for successful ingestions.
const SubjectIngestCompleted = "corpusd.ingest.completed"

// IngestCompleted describes one finished ingestion.
type IngestCompleted struct {
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	Chunks      int       `json:"chunks"`
	Outcome     string    `json:"outcome"`
	At          time.Time `json:"at"`
}

// Publisher emits ingestion events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishIngestCompleted(ctx context.Context, event IngestCompleted) error
	Close()
}

// Config configures the NATS publisher.
type Config struct {
	// URL is the NATS server URL. Empty disables publishing.
	URL string

	// ConnectTimeout bounds the initial connection.
	// Default: 5 seconds
	ConnectTimeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

// NATSPublisher publishes events to a NATS server.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATSPublisher connects to NATS. A nil publisher with nil error is
// returned when config.URL is empty; callers treat nil as disabled.
func NewNATSPublisher(config Config, logger *zap.Logger) (*NATSPublisher, error) {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.URL == "" {
		return nil, nil
	}

	conn, err := nats.Connect(config.URL,
		nats.Timeout(config.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", config.URL, err)
	}

	logger.Info("events publisher connected", zap.String("url", config.URL))

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// PublishIngestCompleted emits the event on SubjectIngestCompleted.
func (p *NATSPublisher) PublishIngestCompleted(_ context.Context, event IngestCompleted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(SubjectIngestCompleted, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", SubjectIngestCompleted, err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
