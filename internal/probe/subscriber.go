package probe

import (
	"WindowSpectra/internal/codec"
	"WindowSpectra/internal/config"
	"log"

	"github.com/nats-io/nats.go"
)

// EnvelopeHandler is a function that processes a received window envelope.
type EnvelopeHandler func(env codec.Envelope)

// Subscriber is responsible for subscribing to a NATS subject and processing messages.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject and hands every decoded envelope to handler.
func (s *Subscriber) Start(handler EnvelopeHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		dispatch(msg.Data, handler)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", s.subject)
	return nil
}

// dispatch decodes one message. Undecodable messages are logged and dropped.
func dispatch(data []byte, handler EnvelopeHandler) bool {
	env, err := codec.UnmarshalEnvelope(data)
	if err != nil {
		log.Printf("Error decoding envelope: %v", err)
		return false
	}
	handler(env)
	return true
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
