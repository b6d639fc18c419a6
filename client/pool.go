package client

import (
	"context"
	"sync"

	"spacekv/internal/metrics"
)

// connFactory constructs a fresh backend connection. Set by whichever
// backend the Client was built with (TCP address or embedded engine).
type connFactory func() (Connection, error)

// Status reports a pool's resource accounting, mirrored into the
// internal/metrics pool gauges by callers that care to observe it.
type Status struct {
	Total     int
	Available int
	Waiting   int
}

// pool is a bounded, fair pool of client connections. Acquire either
// returns an idle connection that passes a health check, or constructs a
// new one so long as the total stays within maxSize. Unhealthy connections
// are dropped on recycle and silently replaced on the next Acquire.
type pool struct {
	maxSize int
	factory connFactory
	metrics *metrics.Metrics

	mu      sync.Mutex
	idle    []Connection
	total   int
	waiting int
	cond    *sync.Cond
}

func newPool(maxSize int, factory connFactory, m *metrics.Metrics) *pool {
	p := &pool{maxSize: maxSize, factory: factory, metrics: m}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// observeLocked mirrors the pool's current counts into the metrics gauges.
// Must be called with p.mu held.
func (p *pool) observeLocked() {
	p.metrics.ObservePoolStatus(p.total, len(p.idle), p.waiting)
}

// Acquire returns a healthy connection, blocking if the pool is at
// capacity and every existing connection is checked out.
func (p *pool) Acquire(ctx context.Context) (Connection, error) {
	p.mu.Lock()
	for {
		for len(p.idle) > 0 {
			conn := p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
			p.observeLocked()
			p.mu.Unlock()

			if conn.IsHealthy(ctx) {
				return conn, nil
			}
			conn.Close()

			p.mu.Lock()
			p.total--
			p.observeLocked()
		}

		if p.total < p.maxSize {
			p.total++
			p.observeLocked()
			p.mu.Unlock()

			conn, err := p.factory()
			if err != nil {
				p.mu.Lock()
				p.total--
				p.observeLocked()
				p.mu.Unlock()
				return nil, err
			}
			return conn, nil
		}

		p.waiting++
		p.observeLocked()
		p.cond.Wait()
		p.waiting--
		p.observeLocked()
	}
}

// Release returns conn to the idle set for reuse.
func (p *pool) Release(conn Connection) {
	p.mu.Lock()
	p.idle = append(p.idle, conn)
	p.observeLocked()
	p.mu.Unlock()
	p.cond.Signal()
}

// Discard drops conn entirely (it failed in use) and frees its capacity
// slot for a fresh connection.
func (p *pool) Discard(conn Connection) {
	conn.Close()
	p.mu.Lock()
	p.total--
	p.observeLocked()
	p.mu.Unlock()
	p.cond.Signal()
}

// Status reports the pool's current counts.
func (p *pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Total: p.total, Available: len(p.idle), Waiting: p.waiting}
}
