package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/api/metrics"
	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
)

const (
	defaultWorkers = 2
	channelBuffer  = 256
	insertTimeout  = 5 * time.Second
)

// Dispatcher persists lookup audit entries on a fixed set of workers,
// sharded by vendor tag. Record never blocks: a full worker queue drops the
// entry.
type Dispatcher struct {
	workers []chan domain.LookupAudit
	repo    ports.AuditRepository
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ ports.AuditSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LookupAudit, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LookupAudit, channelBuffer)
	}
	return d
}

// Start launches the workers. They exit when ctx is cancelled or after
// Close has drained their queues.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Record queues an audit entry for the worker owning its vendor.
func (d *Dispatcher) Record(entry domain.LookupAudit) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.AuditDroppedTotal.Inc()
		return
	}

	idx := d.shardIndex(entry.Vendor)
	ch := d.workers[idx]
	select {
	case ch <- entry:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(ch)))
	default:
		metrics.AuditDroppedTotal.Inc()
		d.log.Warn().Str("vendor", entry.Vendor).Int("worker_id", idx).Msg("audit queue full, entry dropped")
	}
}

// Close stops accepting entries and waits for the workers to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) shardIndex(vendor string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(vendor))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LookupAudit) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.persist(ctx, id, entry)
		}
	}
}

func (d *Dispatcher) persist(ctx context.Context, id int, entry domain.LookupAudit) {
	insertCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	if err := d.repo.InsertLookup(insertCtx, &entry); err != nil {
		d.log.Error().Err(err).
			Str("audit_id", entry.ID).
			Str("vendor", entry.Vendor).
			Int("worker_id", id).
			Msg("audit insert failed")
	}
}
