package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// Summary is the message published after every run.
type Summary struct {
	RunID         string         `json:"run_id"`
	Date          string         `json:"date"`
	Source        string         `json:"source"`
	Status        string         `json:"status"`
	Lines         int            `json:"lines"`
	Parsed        int            `json:"parsed"`
	ParsedPercent float64        `json:"parsed_percent"`
	Endpoints     int            `json:"endpoints"`
	Report        string         `json:"report,omitempty"`
	Error         string         `json:"error,omitempty"`
	Top           []model.Record `json:"top,omitempty"`
}

// Publisher delivers run summaries.
type Publisher interface {
	Publish(ctx context.Context, s Summary) error
	Close() error
}

// Noop discards summaries.
type Noop struct{}

func (Noop) Publish(context.Context, Summary) error { return nil }
func (Noop) Close() error                           { return nil }

// NATSPublisher publishes summaries as JSON on a NATS subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

// NewNATS connects to url. Connection failures are returned, not retried.
func NewNATS(url, subject string, timeout time.Duration) (*NATSPublisher, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	nc, err := nats.Connect(url, nats.Name("nginx-log-analyzer"), nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject, timeout: timeout}, nil
}

// Publish sends s and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, s Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, b); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return p.nc.FlushTimeout(p.timeout)
}

// Close closes the connection.
func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}
