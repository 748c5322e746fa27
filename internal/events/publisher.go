package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// JetStream stream and subject layout for outbound notifications.
const (
	StreamStock = "STOCK"

	SubjectProductUpdate = "stock.product.update"
	SubjectAlertNew      = "stock.alert.new"
	SubjectAlertResolved = "stock.alert.resolved"
)

// StockEventPublisher bridges the in-process notifier to NATS JetStream
// so external collaborators (dashboards, notification fan-out) can
// subscribe. It is optional: the pipeline runs unchanged without it, and
// publish failures are logged and swallowed.
type StockEventPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewStockEventPublisher connects to NATS and ensures the stock stream
// exists.
func NewStockEventPublisher(natsURL string, logger *logrus.Logger) (*StockEventPublisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	nc, err := nats.Connect(natsURL, nats.Name("stock-monitor-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log := logger.WithField("component", "stock-events")
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamStock,
		Subjects: []string{"stock.>"},
	}); err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		log.WithError(err).Warn("Failed to ensure stock stream exists")
	}

	return &StockEventPublisher{nc: nc, js: js, logger: log}, nil
}

// Attach subscribes the publisher to the notifier so every in-process
// notification is republished to JetStream.
func (p *StockEventPublisher) Attach(n *Notifier) {
	n.Subscribe(func(env Envelope) {
		subject := subjectFor(env.Event)
		if subject == "" {
			return
		}
		data, err := json.Marshal(env)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal notification envelope")
			return
		}
		if _, err := p.js.Publish(subject, data); err != nil {
			p.logger.WithFields(logrus.Fields{
				"subject": subject,
				"event":   env.Event,
			}).WithError(err).Error("Failed to publish notification")
		}
	})
}

func subjectFor(event string) string {
	switch event {
	case EventProductUpdate:
		return SubjectProductUpdate
	case EventAlertNew:
		return SubjectAlertNew
	case EventAlertResolved:
		return SubjectAlertResolved
	}
	return ""
}

// Close drains the NATS connection.
func (p *StockEventPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
