// Package health runs the preflight checks of "grablock check".
//
// Checks run concurrently, each under its own timeout, and a panicking
// check is reported as unhealthy instead of taking the process down.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds a check registered without a timeout.
const DefaultTimeout = 5 * time.Second

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is ready.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the lock works without this component.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the lock would fail.
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates the component has not been checked.
	StatusUnknown Status = "unknown"
)

// CheckResult represents the result of a health check.
type CheckResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Critical bool          `json:"critical"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Check performs one check. It should honour ctx.
type Check func(ctx context.Context) CheckResult

// Component is a named check.
type Component struct {
	Name string
	// Critical components make the overall status unhealthy when they
	// fail; others only degrade it.
	Critical bool
	Check    Check
	Timeout  time.Duration
}

// Checker holds an ordered set of components.
type Checker struct {
	mu         sync.Mutex
	components []*Component
}

// NewChecker returns an empty checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Register adds a component. A component with the same name is replaced
// in place.
func (c *Checker) Register(component *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if component.Timeout <= 0 {
		component.Timeout = DefaultTimeout
	}
	for i, existing := range c.components {
		if existing.Name == component.Name {
			c.components[i] = component
			return
		}
	}
	c.components = append(c.components, component)
}

// RegisterFunc registers check under name with the default timeout.
func (c *Checker) RegisterFunc(name string, critical bool, check Check) {
	c.Register(&Component{Name: name, Critical: critical, Check: check})
}

// Report is the outcome of one Run.
type Report struct {
	Status  Status        `json:"status"`
	Results []CheckResult `json:"results"`
}

// Run executes every component and returns the results in registration
// order.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	components := append([]*Component(nil), c.components...)
	c.mu.Unlock()

	results := make([]CheckResult, len(components))
	var wg sync.WaitGroup
	for i, comp := range components {
		wg.Add(1)
		go func(i int, comp *Component) {
			defer wg.Done()
			results[i] = runOne(ctx, comp)
		}(i, comp)
	}
	wg.Wait()

	return Report{Status: Overall(results), Results: results}
}

func runOne(ctx context.Context, comp *Component) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, comp.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan CheckResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- CheckResult{
					Status:  StatusUnhealthy,
					Message: "check panicked",
					Error:   fmt.Sprint(r),
				}
			}
		}()
		done <- comp.Check(checkCtx)
	}()

	var result CheckResult
	select {
	case result = <-done:
	case <-checkCtx.Done():
		result = CheckResult{
			Status:  StatusUnhealthy,
			Message: "check timed out",
			Error:   checkCtx.Err().Error(),
		}
	}

	result.Name = comp.Name
	result.Critical = comp.Critical
	result.Duration = time.Since(start)
	if result.Status == "" {
		result.Status = StatusUnknown
	}
	return result
}

// Overall folds results into one status: a failing critical component
// is unhealthy, any other problem is degraded.
func Overall(results []CheckResult) Status {
	status := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			if r.Critical {
				return StatusUnhealthy
			}
			status = StatusDegraded
		case StatusDegraded:
			status = StatusDegraded
		case StatusUnknown:
			if r.Critical {
				return StatusUnknown
			}
		}
	}
	return status
}

// Healthy returns a passing result.
func Healthy(format string, args ...any) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf(format, args...)}
}

// Degraded returns a warning result.
func Degraded(message string, err error) CheckResult {
	r := CheckResult{Status: StatusDegraded, Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Unhealthy returns a failing result.
func Unhealthy(message string, err error) CheckResult {
	r := CheckResult{Status: StatusUnhealthy, Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// FromError maps err to Healthy or Unhealthy.
func FromError(ok string, err error) CheckResult {
	if err != nil {
		return Unhealthy(ok+" failed", err)
	}
	return Healthy("%s", ok)
}
