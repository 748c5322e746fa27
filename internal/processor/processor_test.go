package processor

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-monitor-service/internal/engine"
	"stock-monitor-service/internal/events"
	"stock-monitor-service/internal/models"
	"stock-monitor-service/internal/store"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type pipeline struct {
	ledger   *store.Ledger
	history  *store.History
	registry *store.AlertRegistry
	notifier *events.Notifier
	proc     *Processor
}

func newPipeline() *pipeline {
	logger := testLogger()
	ledger := store.NewLedger(logger)
	history := store.NewHistory()
	registry := store.NewAlertRegistry()
	notifier := events.NewNotifier(logger)
	alerts := engine.NewAlertEngine(history, registry, nil, logger)
	return &pipeline{
		ledger:   ledger,
		history:  history,
		registry: registry,
		notifier: notifier,
		proc:     New(ledger, history, alerts, notifier, logger),
	}
}

func (pl *pipeline) addProduct(t *testing.T, stock, reorder, capacity int) models.Product {
	t.Helper()
	p, err := pl.ledger.Create(models.Product{
		SKU:          "SKU-" + uuid.NewString()[:8],
		Name:         "Widget",
		Category:     "Electronics",
		WarehouseID:  "WH-001",
		CurrentStock: stock,
		ReorderPoint: reorder,
		MaxCapacity:  capacity,
	})
	require.NoError(t, err)
	return p
}

func event(productID uuid.UUID, eventType models.EventType, qty int) models.StockEvent {
	return models.StockEvent{
		ID:        uuid.New(),
		Type:      eventType,
		ProductID: productID,
		Quantity:  qty,
		Timestamp: time.Now().UTC(),
	}
}

// recorder collects notification envelopes for assertions.
type recorder struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (r *recorder) record(env events.Envelope) {
	r.mu.Lock()
	r.envelopes = append(r.envelopes, env)
	r.mu.Unlock()
}

func (r *recorder) byEvent(name string) []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Envelope
	for _, env := range r.envelopes {
		if env.Event == name {
			out = append(out, env)
		}
	}
	return out
}

func TestProcessAppliesSignedDeltas(t *testing.T) {
	pl := newPipeline()
	p := pl.addProduct(t, 100, 20, 500)

	require.NoError(t, pl.proc.Process(event(p.ID, models.EventTypeSale, 30)))
	require.NoError(t, pl.proc.Process(event(p.ID, models.EventTypeRestock, 15)))
	require.NoError(t, pl.proc.Process(event(p.ID, models.EventTypeReturn, 5)))

	got, err := pl.ledger.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, got.CurrentStock)
	assert.Equal(t, 3, pl.history.Len())
	assert.Equal(t, uint64(3), pl.proc.Stats().Processed)
}

func TestProcessRedeliveryIsNoOp(t *testing.T) {
	pl := newPipeline()
	p := pl.addProduct(t, 100, 20, 500)
	ev := event(p.ID, models.EventTypeSale, 30)

	require.NoError(t, pl.proc.Process(ev))
	require.NoError(t, pl.proc.Process(ev))

	got, err := pl.ledger.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, got.CurrentStock)
	assert.Equal(t, 1, pl.history.Len())

	stats := pl.proc.Stats()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(1), stats.Duplicates)
}

func TestProcessUnknownProductNoPartialMutation(t *testing.T) {
	pl := newPipeline()
	known := pl.addProduct(t, 100, 20, 500)

	err := pl.proc.Process(event(uuid.New(), models.EventTypeSale, 5))
	assert.ErrorIs(t, err, store.ErrProductNotFound)

	got, err := pl.ledger.Get(known.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.CurrentStock)
	assert.Equal(t, uint64(1), pl.proc.Stats().Rejected)
}

func TestProcessRejectsMalformedEvents(t *testing.T) {
	pl := newPipeline()
	p := pl.addProduct(t, 100, 20, 500)

	cases := map[string]models.StockEvent{
		"missing id":     {Type: models.EventTypeSale, ProductID: p.ID, Quantity: 1, Timestamp: time.Now()},
		"unknown type":   {ID: uuid.New(), Type: "AUDIT", ProductID: p.ID, Quantity: 1, Timestamp: time.Now()},
		"missing product": {ID: uuid.New(), Type: models.EventTypeSale, Quantity: 1, Timestamp: time.Now()},
		"zero quantity":  {ID: uuid.New(), Type: models.EventTypeSale, ProductID: p.ID, Timestamp: time.Now()},
		"negative qty":   {ID: uuid.New(), Type: models.EventTypeSale, ProductID: p.ID, Quantity: -2, Timestamp: time.Now()},
		"no timestamp":   {ID: uuid.New(), Type: models.EventTypeSale, ProductID: p.ID, Quantity: 1},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, pl.proc.Process(ev), ErrMalformedEvent)
		})
	}
	assert.Equal(t, 0, pl.history.Len())
}

func TestProcessOversellClampsAndCounts(t *testing.T) {
	pl := newPipeline()
	p := pl.addProduct(t, 5, 2, 100)

	require.NoError(t, pl.proc.Process(event(p.ID, models.EventTypeSale, 20)))

	got, err := pl.ledger.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentStock)
	assert.Equal(t, uint64(1), pl.proc.Stats().Anomalies)
}

func TestProcessPublishesNotifications(t *testing.T) {
	pl := newPipeline()
	rec := &recorder{}
	pl.notifier.Subscribe(rec.record)
	p := pl.addProduct(t, 12, 20, 100)

	// drives stock to 9: product update plus critical and reorder alerts
	require.NoError(t, pl.proc.Process(event(p.ID, models.EventTypeSale, 3)))

	updates := rec.byEvent(events.EventProductUpdate)
	require.Len(t, updates, 1)
	snapshot, ok := updates[0].Payload.(models.Product)
	require.True(t, ok)
	assert.Equal(t, 9, snapshot.CurrentStock)

	assert.Len(t, rec.byEvent(events.EventAlertNew), 2)

	// restocking past the critical threshold resolves the critical alert
	require.NoError(t, pl.proc.Process(event(p.ID, models.EventTypeRestock, 10)))
	resolved := rec.byEvent(events.EventAlertResolved)
	require.Len(t, resolved, 1)
	payload, ok := resolved[0].Payload.(events.AlertResolvedPayload)
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, payload.AlertID)
}

func TestProcessSurvivesPanickingSubscriber(t *testing.T) {
	pl := newPipeline()
	pl.notifier.Subscribe(func(events.Envelope) { panic("subscriber bug") })
	p := pl.addProduct(t, 100, 20, 500)

	assert.NoError(t, pl.proc.Process(event(p.ID, models.EventTypeSale, 1)))
}
