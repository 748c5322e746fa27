// Package generator emits synthetic stock events into the pipeline. It is
// a stand-in for the real event source and only promises well-formed
// events at the ingestion boundary.
package generator

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/models"
	"stock-monitor-service/internal/processor"
	"stock-monitor-service/internal/store"
)

// Generator produces random SALE/RESTOCK/RETURN events for provisioned
// products at a fixed interval. Sales dominate so stock trends downward
// and alerts actually fire.
type Generator struct {
	ledger     *store.Ledger
	dispatcher *processor.Dispatcher
	interval   time.Duration
	rng        *rand.Rand
	logger     *logrus.Entry
	stopCh     chan struct{}
}

func New(ledger *store.Ledger, dispatcher *processor.Dispatcher, interval time.Duration, logger *logrus.Logger) *Generator {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Generator{
		ledger:     ledger,
		dispatcher: dispatcher,
		interval:   interval,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     logger.WithField("component", "generator"),
		stopCh:     make(chan struct{}),
	}
}

// Start emits events until stopped or the context is cancelled.
func (g *Generator) Start(ctx context.Context) {
	g.logger.WithField("interval", g.interval.String()).Info("Synthetic event generator started")
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.emit()
		case <-g.stopCh:
			g.logger.Info("Synthetic event generator stopped")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the generator to stop.
func (g *Generator) Stop() {
	close(g.stopCh)
}

func (g *Generator) emit() {
	products := g.ledger.All()
	if len(products) == 0 {
		return
	}
	p := products[g.rng.Intn(len(products))]

	ev := models.StockEvent{
		ID:        uuid.New(),
		ProductID: p.ID,
		Timestamp: time.Now().UTC(),
		Meta:      models.EventMeta{Source: "generator"},
	}
	switch n := g.rng.Intn(10); {
	case n < 7:
		ev.Type = models.EventTypeSale
		ev.Quantity = 1 + g.rng.Intn(5)
	case n < 9:
		ev.Type = models.EventTypeRestock
		ev.Quantity = 10 + g.rng.Intn(40)
	default:
		ev.Type = models.EventTypeReturn
		ev.Quantity = 1 + g.rng.Intn(3)
	}
	g.dispatcher.Enqueue(ev)
}
