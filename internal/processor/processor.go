// Package processor contains the single mutation path of the pipeline:
// every stock event flows through Processor.Process, serialized per
// product by the Dispatcher.
package processor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/engine"
	"stock-monitor-service/internal/events"
	"stock-monitor-service/internal/models"
	"stock-monitor-service/internal/store"
)

var ErrMalformedEvent = errors.New("malformed event")

// Processor applies one stock event to the ledger, appends it to history,
// drives the alert engine and emits change notifications. It performs no
// retries: redelivery is the transport's concern, made safe by the
// history's idempotent append.
type Processor struct {
	ledger   *store.Ledger
	history  *store.History
	alerts   *engine.AlertEngine
	notifier *events.Notifier
	logger   *logrus.Entry

	processed  atomic.Uint64
	duplicates atomic.Uint64
	rejected   atomic.Uint64
}

func New(ledger *store.Ledger, history *store.History, alerts *engine.AlertEngine, notifier *events.Notifier, logger *logrus.Logger) *Processor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Processor{
		ledger:   ledger,
		history:  history,
		alerts:   alerts,
		notifier: notifier,
		logger:   logger.WithField("component", "processor"),
	}
}

// Process runs the pipeline steps for one event, in order: history
// append (idempotent), product resolution, ledger apply, alert
// evaluation, notification. An unknown product rejects the event with no
// partial ledger mutation. Notification failures never roll anything
// back.
func (p *Processor) Process(ev models.StockEvent) error {
	if err := validate(ev); err != nil {
		p.rejected.Add(1)
		return err
	}

	if seen := p.history.Append(ev); seen {
		p.duplicates.Add(1)
		p.logger.WithField("eventId", ev.ID).Debug("Duplicate event redelivered, skipping")
		return nil
	}

	product, err := p.ledger.Get(ev.ProductID)
	if err != nil {
		p.rejected.Add(1)
		p.logger.WithFields(logrus.Fields{
			"eventId":   ev.ID,
			"productId": ev.ProductID,
		}).Warn("Event references unknown product, discarding")
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}

	product, err = p.ledger.Apply(product.ID, ev.SignedDelta(), ev.Timestamp)
	if err != nil {
		// Get succeeded just above and products are never deleted, so
		// this is a programming-error-class failure.
		return fmt.Errorf("apply event %s: %w", ev.ID, err)
	}

	outcome := p.alerts.Evaluate(product, ev)

	p.notifier.PublishProductUpdate(product)
	for _, a := range outcome.Created {
		p.notifier.PublishAlertNew(a)
	}
	for _, a := range outcome.Resolved {
		p.notifier.PublishAlertResolved(a.ID, derefTime(a.ResolvedAt, ev.Timestamp))
	}

	p.processed.Add(1)
	return nil
}

func validate(ev models.StockEvent) error {
	if ev.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrMalformedEvent)
	}
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	if ev.ProductID == uuid.Nil {
		return fmt.Errorf("%w: missing productId", ErrMalformedEvent)
	}
	if ev.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrMalformedEvent)
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedEvent)
	}
	return nil
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}

// Stats reports pipeline counters for health reporting.
type Stats struct {
	Processed  uint64 `json:"processed"`
	Duplicates uint64 `json:"duplicates"`
	Rejected   uint64 `json:"rejected"`
	Anomalies  uint64 `json:"anomalies"`
}

func (p *Processor) Stats() Stats {
	return Stats{
		Processed:  p.processed.Load(),
		Duplicates: p.duplicates.Load(),
		Rejected:   p.rejected.Load(),
		Anomalies:  p.ledger.Anomalies(),
	}
}
