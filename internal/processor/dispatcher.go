package processor

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/models"
)

// Dispatcher fans events out to a fixed set of workers, hashing on
// product ID so all events for one product land on the same worker's
// ordered backlog. Per-product arrival order is preserved end to end;
// distinct products process in parallel.
type Dispatcher struct {
	proc          *Processor
	workers       []*worker
	highWatermark int
	logger        *logrus.Entry

	closed    atomic.Bool
	enqueued  atomic.Uint64
	completed atomic.Uint64
	wg        sync.WaitGroup
}

type worker struct {
	mu      sync.Mutex
	backlog []models.StockEvent
	notify  chan struct{}
}

func NewDispatcher(proc *Processor, workerCount, highWatermark int, logger *logrus.Logger) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &Dispatcher{
		proc:          proc,
		highWatermark: highWatermark,
		logger:        logger.WithField("component", "dispatcher"),
	}
	for i := 0; i < workerCount; i++ {
		d.workers = append(d.workers, &worker{notify: make(chan struct{}, 1)})
	}
	return d
}

// Start launches one goroutine per worker partition.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, w := range d.workers {
		d.wg.Add(1)
		go d.run(ctx, w)
	}
	d.logger.WithField("workers", len(d.workers)).Info("Dispatcher started")
}

// Enqueue routes an event to its product partition. It reports false when
// intake has been closed for shutdown.
func (d *Dispatcher) Enqueue(ev models.StockEvent) bool {
	if d.closed.Load() {
		return false
	}
	w := d.workers[d.partition(ev.ProductID.String())]
	w.mu.Lock()
	w.backlog = append(w.backlog, ev)
	size := len(w.backlog)
	w.mu.Unlock()

	d.enqueued.Add(1)
	if d.highWatermark > 0 && size > d.highWatermark {
		d.logger.WithFields(logrus.Fields{
			"backlog_size":   size,
			"high_watermark": d.highWatermark,
		}).Warn("Worker backlog exceeds high watermark")
	}
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return true
}

func (d *Dispatcher) partition(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) run(ctx context.Context, w *worker) {
	defer d.wg.Done()
	for {
		batch := w.take()
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
				continue
			}
		}
		for _, ev := range batch {
			if err := d.proc.Process(ev); err != nil {
				d.logger.WithField("eventId", ev.ID).WithError(err).Warn("Event rejected")
			}
			d.completed.Add(1)
		}
	}
}

func (w *worker) take() []models.StockEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.backlog) == 0 {
		return nil
	}
	batch := w.backlog
	w.backlog = nil
	return batch
}

// CloseIntake rejects all future enqueues; already-queued events still
// process.
func (d *Dispatcher) CloseIntake() { d.closed.Store(true) }

// Drain blocks until every enqueued event has completed or the context
// expires.
func (d *Dispatcher) Drain(ctx context.Context) bool {
	for {
		if d.completed.Load() == d.enqueued.Load() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Wait blocks until all workers have exited after their context is
// cancelled.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// BacklogSize returns the number of queued-but-unprocessed events.
func (d *Dispatcher) BacklogSize() int {
	var n int
	for _, w := range d.workers {
		w.mu.Lock()
		n += len(w.backlog)
		w.mu.Unlock()
	}
	return n
}

// Metrics returns dispatcher counters for health reporting.
func (d *Dispatcher) Metrics() (enqueued, completed uint64, backlog int) {
	return d.enqueued.Load(), d.completed.Load(), d.BacklogSize()
}

// WorkerCount returns the number of partitions.
func (d *Dispatcher) WorkerCount() int { return len(d.workers) }
