// Package events provides the outbound notification port of the pipeline
// and an optional NATS JetStream bridge for external collaborators.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/models"
)

// Envelope is the wire shape of a change notification.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Notification event names.
const (
	EventProductUpdate = "product:update"
	EventAlertNew      = "alert:new"
	EventAlertResolved = "alert:resolved"
)

// AlertResolvedPayload is the payload of an alert:resolved notification.
type AlertResolvedPayload struct {
	AlertID   uuid.UUID `json:"alertId"`
	Timestamp time.Time `json:"timestamp"`
}

// SubscriberFunc receives notification envelopes. Delivery is best effort:
// a subscriber that panics is logged and dropped from that delivery, and
// must never block event processing.
type SubscriberFunc func(Envelope)

// Notifier fans change notifications out to zero or more in-process
// subscribers. It is the explicit outbound port of the processor and the
// alert engine; the core does not care what, if anything, is listening.
type Notifier struct {
	mu     sync.RWMutex
	subs   []SubscriberFunc
	logger *logrus.Entry
}

func NewNotifier(logger *logrus.Logger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{logger: logger.WithField("component", "notifier")}
}

// Subscribe registers a callback for all future notifications.
func (n *Notifier) Subscribe(fn SubscriberFunc) {
	n.mu.Lock()
	n.subs = append(n.subs, fn)
	n.mu.Unlock()
}

// PublishProductUpdate emits the new product snapshot after a mutation.
func (n *Notifier) PublishProductUpdate(p models.Product) {
	n.publish(Envelope{Event: EventProductUpdate, Payload: p})
}

// PublishAlertNew emits a newly created alert.
func (n *Notifier) PublishAlertNew(a models.Alert) {
	n.publish(Envelope{Event: EventAlertNew, Payload: a})
}

// PublishAlertResolved emits an alert resolution.
func (n *Notifier) PublishAlertResolved(alertID uuid.UUID, at time.Time) {
	n.publish(Envelope{Event: EventAlertResolved, Payload: AlertResolvedPayload{AlertID: alertID, Timestamp: at.UTC()}})
}

func (n *Notifier) publish(env Envelope) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()
	for _, fn := range subs {
		n.deliver(fn, env)
	}
}

func (n *Notifier) deliver(fn SubscriberFunc, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.WithFields(logrus.Fields{
				"event": env.Event,
				"panic": r,
			}).Error("Notification subscriber panicked")
		}
	}()
	fn(env)
}
