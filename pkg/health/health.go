// Package health implements Kubernetes-style liveness and readiness probes.
//
// Registered checks run periodically in the background. To keep probes from
// flapping, a check flips to unhealthy only after several consecutive
// failures and back to healthy after a consecutive success streak, mirroring
// Kubernetes probe thresholds.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component, returning nil when it is healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureStreak = 3
	defaultSuccessStreak = 1
)

// check is one registered probe with its debounced state. The state fields
// are guarded by mu; the ticker goroutine writes them and HTTP handlers read
// them.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	passes  int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	// Assume healthy until proven otherwise, so a slow first probe does not
	// fail the whole service at startup.
	return &check{name: name, timeout: timeout, fn: fn, healthy: true}
}

// observe folds one probe result into the debounced state.
func (c *check) observe(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err
	if err != nil {
		c.passes = 0
		c.fails++
		if c.fails >= defaultFailureStreak {
			c.healthy = false
		}
		return
	}
	c.fails = 0
	c.passes++
	if c.passes >= defaultSuccessStreak {
		c.healthy = true
	}
}

// status returns the current health flag and, when unhealthy, a message.
func (c *check) status() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthy {
		return true, ""
	}
	if c.lastErr != nil {
		return false, c.lastErr.Error()
	}
	return false, "check is unhealthy"
}

func (c *check) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	c.observe(c.fn(ctx))
}

// Service runs liveness and readiness checks and serves their probe
// endpoints.
type Service struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a probe service. It starts not-ready; call SetReady(true) once
// initialization finished.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe of the process itself, such as a
// goroutine leak detector.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a probe of a dependency the service needs to
// accept traffic, such as database connectivity.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newCheck(name, timeout, fn))
}

// Start launches one background goroutine per registered check, probing at
// the given interval until Stop is called or ctx ends. Register every check
// before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	checks := append(append([]*check(nil), s.liveness...), s.readiness...)
	s.mu.Unlock()

	for _, c := range checks {
		go func(c *check) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.probe(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.probe(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels the background probes. Safe to call repeatedly.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate: true once initialization is done,
// false during graceful shutdown to drain traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	for _, c := range s.snapshot(&s.readiness) {
		if ok, _ := c.status(); !ok {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(list *[]*check) []*check {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*check(nil), *list...)
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while every liveness check passes, 503 with
// per-check messages otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, failuresOf(s.snapshot(&s.liveness)))
}

// ReadyEndpoint serves /readyz: 200 while the service is marked ready and
// every readiness check passes, 503 with details otherwise.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := failuresOf(s.snapshot(&s.readiness))
	if !s.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeProbe(w, failures)
}

func failuresOf(checks []*check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if ok, msg := c.status(); !ok {
			failures[c.name] = msg
		}
	}
	return failures
}

func writeProbe(w http.ResponseWriter, failures map[string]string) {
	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = probeResponse{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
