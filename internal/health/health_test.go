package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsRegistrationOrder(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("config", true, func(context.Context) CheckResult { return Healthy("ok") })
	c.RegisterFunc("display", true, func(context.Context) CheckResult {
		time.Sleep(10 * time.Millisecond)
		return Healthy("ok")
	})
	c.RegisterFunc("logind", false, func(context.Context) CheckResult { return Healthy("ok") })

	report := c.Run(context.Background())
	require.Len(t, report.Results, 3)
	assert.Equal(t, "config", report.Results[0].Name)
	assert.Equal(t, "display", report.Results[1].Name)
	assert.Equal(t, "logind", report.Results[2].Name)
	assert.Equal(t, StatusHealthy, report.Status)
	assert.True(t, report.Results[0].Critical)
	assert.False(t, report.Results[2].Critical)
}

func TestRegisterReplaces(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("auth", true, func(context.Context) CheckResult { return Unhealthy("no", nil) })
	c.RegisterFunc("auth", true, func(context.Context) CheckResult { return Healthy("yes") })

	report := c.Run(context.Background())
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusHealthy, report.Results[0].Status)
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		results []CheckResult
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []CheckResult{{Status: StatusHealthy, Critical: true}}, StatusHealthy},
		{"critical failure", []CheckResult{
			{Status: StatusHealthy, Critical: true},
			{Status: StatusUnhealthy, Critical: true},
		}, StatusUnhealthy},
		{"optional failure", []CheckResult{
			{Status: StatusHealthy, Critical: true},
			{Status: StatusUnhealthy, Critical: false},
		}, StatusDegraded},
		{"degraded", []CheckResult{{Status: StatusDegraded, Critical: true}}, StatusDegraded},
		{"critical unknown", []CheckResult{{Status: StatusUnknown, Critical: true}}, StatusUnknown},
		{"optional unknown", []CheckResult{{Status: StatusUnknown}}, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overall(tt.results))
		})
	}
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:     "display",
		Critical: true,
		Timeout:  20 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return Healthy("late")
		},
	})

	report := c.Run(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "check timed out", report.Results[0].Message)
}

func TestCheckPanic(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("auth", true, func(context.Context) CheckResult { panic("boom") })

	report := c.Run(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "boom", report.Results[0].Error)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, StatusHealthy, FromError("display reachable", nil).Status)

	r := FromError("display reachable", errors.New("connection refused"))
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "display reachable failed", r.Message)
	assert.Equal(t, "connection refused", r.Error)

	assert.Equal(t, StatusDegraded, Degraded("core dumps enabled", nil).Status)
	assert.Empty(t, Degraded("x", nil).Error)
}

func TestEmptyStatusIsUnknown(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("odd", false, func(context.Context) CheckResult { return CheckResult{} })

	report := c.Run(context.Background())
	assert.Equal(t, StatusUnknown, report.Results[0].Status)
	assert.Equal(t, StatusHealthy, report.Status)
}
