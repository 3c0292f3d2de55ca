package probe

import (
	"WindowSpectra/internal/codec"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// Publisher is responsible for publishing window envelopes to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Subject returns the subject envelopes are published to.
func (p *Publisher) Subject() string { return p.subject }

// Publish serializes an envelope to protobuf and publishes it.
func (p *Publisher) Publish(env codec.Envelope) error {
	data, err := codec.MarshalEnvelope(env)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish window %d: %w", env.WindowID, err)
	}
	return nil
}

// Flush blocks until the server has processed everything published so far.
func (p *Publisher) Flush() error {
	if err := p.nc.Flush(); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return err
	}
	log.Println("NATS connection drained and closed.")
	return nil
}
