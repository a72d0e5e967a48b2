// Package health provides Kubernetes-style liveness and readiness probe
// endpoints. Registered checks run periodically in the background; the
// HTTP handlers only read the latest results, so probes stay fast even
// when a dependency is slow.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// CheckFunc is a health check. It returns nil when the checked component
// is healthy.
type CheckFunc func(ctx context.Context) error

// check holds one registered check and its latest result. Results are
// written by the single background goroutine and read by HTTP handlers,
// hence the atomics.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)
	c.healthy.Store(err == nil)
}

func (c *check) lastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Service runs health checks and serves their results.
type Service struct {
	mu        sync.Mutex
	liveness  []*check
	readiness []*check

	ready  atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an empty health Service. Register checks, then call Start.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check that gates the liveness endpoint.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	s.liveness = append(s.liveness, c)
}

// AddReadinessCheck registers a check that gates the readiness endpoint.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	s.readiness = append(s.readiness, c)
}

// SetReady flips the administrative readiness gate. Shutdown sets it to
// false before draining so load balancers stop sending traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start launches the background check loop with the given interval. All
// checks also run once immediately.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.runAll(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

// Stop terminates the background loop and waits for it to exit.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.mu.Lock()
	checks := make([]*check, 0, len(s.liveness)+len(s.readiness))
	checks = append(checks, s.liveness...)
	checks = append(checks, s.readiness...)
	s.mu.Unlock()

	for _, c := range checks {
		c.run(ctx)
	}
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := append([]*check(nil), s.liveness...)
	s.mu.Unlock()
	writeStatus(w, checks, true)
}

// ReadyEndpoint serves the readiness probe. It fails when the
// administrative gate is down or any readiness check is unhealthy.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := append([]*check(nil), s.readiness...)
	s.mu.Unlock()
	writeStatus(w, checks, s.ready.Load())
}

func writeStatus(w http.ResponseWriter, checks []*check, gate bool) {
	status := "ok"
	code := http.StatusOK
	results := make(map[string]string, len(checks))

	if !gate {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	for _, c := range checks {
		if c.healthy.Load() {
			results[c.name] = "ok"
			continue
		}
		status = "unavailable"
		code = http.StatusServiceUnavailable
		if err := c.lastError(); err != nil {
			results[c.name] = err.Error()
		} else {
			results[c.name] = "failing"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": results,
	})
}

// GoroutineCountCheck returns a liveness check that fails when the process
// has more than max goroutines, a cheap leak tripwire.
func GoroutineCountCheck(max int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("too many goroutines: %d > %d", n, max)
		}
		return nil
	}
}
