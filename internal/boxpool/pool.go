// Package boxpool implements the Box Pool (C3): a bounded pool of numeric
// sandbox identifiers. Acquire blocks in FIFO order until an identifier is
// free; release is idempotent for identifiers the caller does not hold.
package boxpool

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pool hands out box identifiers drawn from a contiguous [min, max] range.
type Pool struct {
	min, max int
	free     chan int
	held     map[int]bool
	mu       sync.Mutex

	capacity    prometheus.Gauge
	inUseGauge  prometheus.Gauge
	waitSeconds prometheus.Histogram
}

// New creates a pool covering [min, max] inclusive and pre-fills it with
// every identifier in the range, so the first `max-min+1` acquires never
// block.
func New(min, max int, reg prometheus.Registerer) *Pool {
	size := max - min + 1
	p := &Pool{
		min:  min,
		max:  max,
		free: make(chan int, size),
		held: make(map[int]bool, size),

		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "box_pool_capacity",
			Help: "Total number of sandbox box identifiers managed by the pool.",
		}),
		inUseGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "box_pool_in_use",
			Help: "Number of sandbox box identifiers currently checked out.",
		}),
		waitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "box_pool_acquire_wait_seconds",
			Help:    "Time spent blocked in Acquire waiting for a free box identifier.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for id := min; id <= max; id++ {
		p.free <- id
	}
	p.capacity.Set(float64(size))

	if reg != nil {
		reg.MustRegister(p.capacity, p.inUseGauge, p.waitSeconds)
	}

	return p
}

// Acquire blocks until a box identifier is free, or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.waitSeconds)
	defer timer.ObserveDuration()

	select {
	case id := <-p.free:
		p.mu.Lock()
		p.held[id] = true
		p.mu.Unlock()
		p.inUseGauge.Inc()
		return id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Release returns id to the free set. Releasing an id the pool did not
// hand out, or one already released, is a no-op.
func (p *Pool) Release(id int) {
	p.mu.Lock()
	if !p.held[id] {
		p.mu.Unlock()
		return
	}
	delete(p.held, id)
	p.mu.Unlock()

	p.inUseGauge.Dec()
	p.free <- id
}

// Stats is a non-blocking snapshot of pool occupancy.
type Stats struct {
	Total int
	InUse int
	Free  int
}

// Stats returns the current occupancy without blocking.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	inUse := len(p.held)
	p.mu.Unlock()

	total := p.max - p.min + 1
	return Stats{Total: total, InUse: inUse, Free: total - inUse}
}
