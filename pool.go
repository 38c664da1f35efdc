package flowmetrics

import (
	"sync"
)

// MetricsPool holds a set of independent FlowMetrics replicas for parallel
// evaluation.  Each worker checks a replica out with Get, feeds it batches
// and returns it, a single replica is never shared between goroutines.
// Reduce combines all replicas into the global result
type MetricsPool struct {
	// pool of accumulator replicas
	replicas chan *FlowMetrics
	// size of pool
	size  int
	close sync.Once
}

// NewMetricsPool creates a pool of size accumulator replicas sharing the
// same configuration
func NewMetricsPool(size int, p FlowMetricsParams) (*MetricsPool, error) {

	pool := &MetricsPool{
		replicas: make(chan *FlowMetrics, size),
		size:     size,
	}

	for i := 0; i < size; i++ {

		m, err := NewFlowMetrics(p)

		if err != nil {
			return nil, err
		}

		// attach to pool
		pool.Return(m)
	}

	return pool, nil
}

// Get a replica from the pool, blocking until one is available
func (p *MetricsPool) Get() *FlowMetrics {
	return <-p.replicas
}

// Return a replica to the pool
func (p *MetricsPool) Return(m *FlowMetrics) {
	select {
	case p.replicas <- m:
	default:
		// pool is full or closed
	}
}

// Reduce drains the pool and merges every replica's running state into a
// single accumulator by summation.  Dividing the summed state once inside
// Compute yields the correct global average, which is why replicas keep
// sums rather than local means.  All replicas must have been returned
// before calling Reduce
func (p *MetricsPool) Reduce() (*FlowMetrics, error) {

	combined := p.Get()

	for i := 1; i < p.size; i++ {

		next := p.Get()

		if err := combined.Merge(next); err != nil {
			return nil, err
		}
	}

	return combined, nil
}

// Close the pool
func (p *MetricsPool) Close() {
	p.close.Do(func() {
		close(p.replicas)
	})
}
