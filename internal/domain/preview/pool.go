package preview

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrPoolClosed = errors.New("renderer pool is closed")
	ErrTimeout    = errors.New("renderer acquisition timeout")
)

// Pool bounds the number of documents rendered concurrently
type Pool struct {
	config   Config
	runtimes chan *Runtime
	size     int
	mu       sync.RWMutex
	closed   bool
}

// NewPool creates a pool of config.PoolSize runtimes
func NewPool(config Config) *Pool {
	config = config.normalize()
	pool := &Pool{
		config:   config,
		runtimes: make(chan *Runtime, config.PoolSize),
		size:     config.PoolSize,
	}
	for i := 0; i < pool.size; i++ {
		pool.runtimes <- New(config)
	}
	return pool
}

// Acquire gets a runtime from the pool
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	runtimes := p.runtimes
	p.mu.RUnlock()

	wait := time.NewTimer(p.config.AcquireTimeout)
	defer wait.Stop()

	select {
	case rt, ok := <-runtimes:
		if !ok {
			return nil, ErrPoolClosed
		}
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wait.C:
		return nil, ErrTimeout
	}
}

// Release returns a runtime to the pool
func (p *Pool) Release(rt *Runtime) {
	rt.Reset()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.runtimes <- rt:
	default:
	}
}

// Render executes document on a pooled runtime
func (p *Pool) Render(ctx context.Context, document string) (*Result, error) {
	rt, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(rt)

	return rt.Execute(ctx, document)
}

// Close closes the pool
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.runtimes)
	for rt := range p.runtimes {
		rt.Reset()
	}
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.runtimes),
		"in_use":    p.size - len(p.runtimes),
		"closed":    p.closed,
	}
}
