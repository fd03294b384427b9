// Package health backs the /livez and /readyz endpoints. Probes are
// evaluated on a timer in the background; the endpoints report the last
// known state and never run a probe inline.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Probe reports whether a single dependency or runtime property is sound.
type Probe func(ctx context.Context) error

// failAfter is the number of consecutive probe failures before a check is
// reported as failing. A single success resets it.
const failAfter = 3

type check struct {
	name    string
	timeout time.Duration
	probe   Probe

	streak  int
	failing bool
	lastErr error
}

// Service holds registered probes and their last observed state.
// Register probes before Start; the poller does not pick up late additions.
type Service struct {
	mu        sync.Mutex
	ready     bool
	liveness  []*check
	readiness []*check
	stop      context.CancelFunc
}

func New() *Service {
	return &Service{}
}

// AddLiveness registers a probe for /livez. Liveness probes cover the
// process itself (goroutine leaks, GC pressure), not dependencies.
func (s *Service) AddLiveness(name string, timeout time.Duration, p Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, &check{name: name, timeout: timeout, probe: p})
}

// AddReadiness registers a probe for /readyz. Readiness probes cover
// dependencies the service cannot serve traffic without.
func (s *Service) AddReadiness(name string, timeout time.Duration, p Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, &check{name: name, timeout: timeout, probe: p})
}

// Start launches the background poller. Every probe runs once per interval;
// the first sweep happens immediately so endpoints have state before the
// first tick.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stop = cancel
	s.mu.Unlock()

	go func() {
		s.sweep(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop cancels the poller. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// SetReady flips the manual readiness gate. The service starts not-ready;
// call SetReady(true) after wiring completes and SetReady(false) at the top
// of graceful shutdown so the load balancer drains the instance.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// IsReady reports whether the manual gate is open and every readiness check
// passed its last sweep.
func (s *Service) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return false
	}
	for _, c := range s.readiness {
		if c.failing {
			return false
		}
	}
	return true
}

// sweep evaluates every probe once. Probes run outside the lock; only the
// state update takes it.
func (s *Service) sweep(ctx context.Context) {
	s.mu.Lock()
	checks := make([]*check, 0, len(s.liveness)+len(s.readiness))
	checks = append(checks, s.liveness...)
	checks = append(checks, s.readiness...)
	s.mu.Unlock()

	for _, c := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.probe(probeCtx)
		cancel()

		s.mu.Lock()
		c.lastErr = err
		if err != nil {
			c.streak++
			if c.streak >= failAfter {
				c.failing = true
			}
		} else {
			c.streak = 0
			c.failing = false
		}
		s.mu.Unlock()
	}
}

type probeReport struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// HandleLive serves the liveness endpoint: 200 while all liveness checks
// hold, 503 with the failing checks otherwise.
func (s *Service) HandleLive(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	failed := failures(s.liveness)
	s.mu.Unlock()

	writeReport(w, failed)
}

// HandleReady serves the readiness endpoint. It fails while the manual gate
// is closed even if every probe passes.
func (s *Service) HandleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	failed := failures(s.readiness)
	if !s.ready {
		failed["gate"] = "service not marked ready"
	}
	s.mu.Unlock()

	writeReport(w, failed)
}

// failures must be called with s.mu held.
func failures(checks []*check) map[string]string {
	failed := make(map[string]string)
	for _, c := range checks {
		if !c.failing {
			continue
		}
		if c.lastErr != nil {
			failed[c.name] = c.lastErr.Error()
		} else {
			failed[c.name] = "failing"
		}
	}
	return failed
}

func writeReport(w http.ResponseWriter, failed map[string]string) {
	report := probeReport{Status: "pass"}
	code := http.StatusOK
	if len(failed) > 0 {
		report = probeReport{Status: "fail", Failed: failed}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
