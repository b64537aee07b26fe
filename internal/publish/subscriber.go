package publish

import (
	"fmt"

	"FirepowerKit/internal/config"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// SummaryHandler processes a received report summary.
type SummaryHandler func(msg *structpb.Struct)

// Subscriber receives report summaries from a NATS subject.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("firepowerkit-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Infof("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes and hands every decodable message to handler.
func (s *Subscriber) Start(handler SummaryHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var summary structpb.Struct
		if err := proto.Unmarshal(msg.Data, &summary); err != nil {
			log.Errorf("Error unmarshalling summary: %v", err)
			return
		}
		handler(&summary)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Infof("Subscribed to '%s'. Waiting for report summaries...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Debug("NATS connection closed.")
	}
}
