// Package health exposes liveness and readiness probes for a running
// simulation, for headless runs under a supervisor.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/opd-ai/go-drivesim/pkg/engine"
	"github.com/opd-ai/go-drivesim/pkg/logging"
	"github.com/opd-ai/go-drivesim/pkg/physics"
)

// Probe paths.
const (
	LivenessPath  = "/healthz"
	ReadinessPath = "/readyz"
)

// checkTimeout bounds one readiness evaluation.
const checkTimeout = 5 * time.Second

// Check is a single named readiness condition.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// Report is the aggregated readiness result.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

// Result is the outcome of one check.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Status == "healthy"
}

// Checker runs registered checks.
type Checker struct {
	checks map[string]Check
	mu     sync.RWMutex
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
	}
}

// Add registers check, replacing any check with the same name.
func (c *Checker) Add(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[check.Name()] = check
}

// Remove drops the check called name.
func (c *Checker) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Run executes every check. The report is healthy only if all pass.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := Report{
		Status: "healthy",
		Checks: make(map[string]Result, len(c.checks)),
	}
	for name, check := range c.checks {
		if err := check.Check(ctx); err != nil {
			report.Status = "unhealthy"
			report.Checks[name] = Result{Status: "unhealthy", Message: err.Error()}
			continue
		}
		report.Checks[name] = Result{Status: "healthy"}
	}
	return report
}

// LivenessHandler answers 200 while the process can serve requests.
func (c *Checker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs the checks and answers 200 or 503 with the report.
func (c *Checker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	report := c.Run(ctx)

	w.Header().Set("Content-Type", "application/json")
	if report.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}

// Handler routes the probe paths.
func (c *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(LivenessPath, c.LivenessHandler)
	mux.HandleFunc(ReadinessPath, c.ReadinessHandler)
	return mux
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, checker *Checker, logger *logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           checker.Handler(),
		ReadHeaderTimeout: checkTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "health probes listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return logging.WrapError(err, "health server on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return logging.WrapError(err, "health server shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Source is the simulation view the checks read.
type Source interface {
	Status() engine.Status
	Tick() uint64
	VehicleState() physics.VehicleState
}

// SimulationCheck fails unless the loop is running with a finite vehicle.
type SimulationCheck struct {
	source Source
}

// NewSimulationCheck creates a check over source.
func NewSimulationCheck(source Source) *SimulationCheck {
	return &SimulationCheck{source: source}
}

func (s *SimulationCheck) Name() string {
	return "simulation"
}

func (s *SimulationCheck) Check(ctx context.Context) error {
	if status := s.source.Status(); status != engine.StatusRunning {
		return fmt.Errorf("simulation is %s", status)
	}
	if !s.source.VehicleState().IsFinite() {
		return fmt.Errorf("vehicle state is not finite")
	}
	return nil
}

// ProgressCheck fails when the tick counter has not moved since the previous
// check. The first check only records the tick.
type ProgressCheck struct {
	tick func() uint64

	mu   sync.Mutex
	last uint64
	seen bool
}

// NewProgressCheck creates a check over tick.
func NewProgressCheck(tick func() uint64) *ProgressCheck {
	return &ProgressCheck{tick: tick}
}

func (p *ProgressCheck) Name() string {
	return "tick_progress"
}

func (p *ProgressCheck) Check(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.tick()
	defer func() { p.last, p.seen = now, true }()
	if p.seen && now == p.last {
		return fmt.Errorf("simulation stalled at tick %d", now)
	}
	return nil
}

// MemoryCheck fails when heap usage exceeds a limit.
type MemoryCheck struct {
	maxMemoryMB int64
	usage       func() int64
}

// NewMemoryCheck creates a check. A nil usage reads the Go heap.
func NewMemoryCheck(maxMemoryMB int64, usage func() int64) *MemoryCheck {
	if usage == nil {
		usage = HeapAllocMB
	}
	return &MemoryCheck{maxMemoryMB: maxMemoryMB, usage: usage}
}

func (m *MemoryCheck) Name() string {
	return "memory"
}

func (m *MemoryCheck) Check(ctx context.Context) error {
	if current := m.usage(); current > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", current, m.maxMemoryMB)
	}
	return nil
}

// HeapAllocMB returns the live heap in megabytes.
func HeapAllocMB() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapAlloc / 1024 / 1024)
}
