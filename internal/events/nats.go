package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Justype/hqadapter/internal/utils"
)

// NatsConfig holds the NATS connection settings.
type NatsConfig struct {
	URL       string
	Subject   string
	User      string
	Password  string
	CredsFile string
}

// DefaultSubject is used when NatsConfig.Subject is empty.
const DefaultSubject = "hqadapter.jobs"

// NatsPublisher publishes events as JSON messages on one subject.
type NatsPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNatsPublisher connects to cfg.URL.
func NewNatsPublisher(cfg NatsConfig) (*NatsPublisher, error) {
	options := make([]nats.Option, 0)
	options = append(options, nats.Name("hqadapter"))
	if len(cfg.User) > 0 {
		options = append(options, nats.UserInfo(cfg.User, cfg.Password))
	}
	if len(cfg.CredsFile) > 0 {
		options = append(options, nats.UserCredentials(utils.ExpandHome(cfg.CredsFile)))
	}

	utils.PrintDebug("Connecting to NATS: %s", cfg.URL)
	conn, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS (server: %s): %w", cfg.URL, err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return &NatsPublisher{conn: conn, subject: subject}, nil
}

// Publish sends ev to the configured subject.
func (p *NatsPublisher) Publish(ctx context.Context, ev JobEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("unable to publish job event to %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Flush()
	p.conn.Close()
	p.conn = nil
	return err
}
