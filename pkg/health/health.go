package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const defaultCheckTimeout = 5 * time.Second

type CheckFunc func(ctx context.Context) error

type check struct {
	fn       CheckFunc
	optional bool
}

// Checker runs named dependency checks. A failing required check makes the
// service unhealthy; a failing optional check only degrades it.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
}

func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]check),
		timeout: defaultCheckTimeout,
	}
}

// Register adds a required check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.register(name, check{fn: fn})
}

// RegisterOptional adds a check whose failure degrades but does not fail
// readiness.
func (c *Checker) RegisterOptional(name string, fn CheckFunc) {
	c.register(name, check{fn: fn, optional: true})
}

func (c *Checker) register(name string, ch check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = ch
}

type CheckResult struct {
	Status  Status            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// Check runs every registered check concurrently.
func (c *Checker) Check(ctx context.Context) CheckResult {
	c.mu.RLock()
	checks := make(map[string]check, len(c.checks))
	for name, ch := range c.checks {
		checks[name] = ch
	}
	c.mu.RUnlock()

	var (
		mu     sync.Mutex
		result = CheckResult{Status: StatusHealthy, Details: make(map[string]string, len(checks))}
	)

	g, gctx := errgroup.WithContext(ctx)
	for name, ch := range checks {
		name, ch := name, ch
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()
			err := ch.fn(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				result.Details[name] = "ok"
				return nil
			}
			result.Details[name] = err.Error()
			switch {
			case !ch.optional:
				result.Status = StatusUnhealthy
			case result.Status == StatusHealthy:
				result.Status = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := c.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(result)
	}
}
