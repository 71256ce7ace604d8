package ctx

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ctxwin/ctxwin/pkg/logging"
)

// DefaultCountTimeout bounds how long a single token count may take before
// the conservative estimate is substituted.
const DefaultCountTimeout = 2 * time.Second

// CountService runs token counting on a bounded worker pool so CPU-bound
// counts of large uncached content never block the caller's event path.
// A count that exceeds its time budget, or whose build is cancelled, falls
// back to the heuristic estimate; counting failures are never fatal.
type CountService struct {
	cache     *TokenCache
	estimator HeuristicCounter
	pool      *ants.Pool
	timeout   time.Duration
	logger    logging.Logger
}

// NewCountService creates the service with the given worker count.
// workers <= 0 selects a small default sized to the machine.
func NewCountService(cache *TokenCache, workers int, timeout time.Duration, logger logging.Logger) (*CountService, error) {
	if workers <= 0 {
		workers = min(4, runtime.NumCPU())
	}
	if timeout <= 0 {
		timeout = DefaultCountTimeout
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create count pool: %w", err)
	}
	return &CountService{
		cache:   cache,
		pool:    pool,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Count returns the token count for the identified content, consulting the
// cache and dispatching cold computations to the pool. On timeout or
// cancellation the heuristic estimate is returned instead.
func (s *CountService) Count(ctx context.Context, identity, content string) int {
	done := make(chan int, 1)
	if err := s.pool.Submit(func() {
		done <- s.cache.GetOrCompute(identity, content)
	}); err != nil {
		s.logger.Warn("count pool rejected job; using estimate", "identity", identity, "error", err)
		return s.estimator.Count(content)
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case tokens := <-done:
		return tokens
	case <-ctx.Done():
		return s.estimator.Count(content)
	case <-timer.C:
		s.logger.Warn("token count timed out; using conservative estimate",
			"identity", identity, "timeout", s.timeout)
		return s.estimator.Count(content)
	}
}

// Close releases the worker pool.
func (s *CountService) Close() {
	s.pool.Release()
}
