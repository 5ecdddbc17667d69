package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProbeRunnerAllHealthy(t *testing.T) {
	runner := NewProbeRunner(time.Second,
		Probe{Name: "a", Check: func(context.Context) error { return nil }},
		Probe{Name: "b", Check: func(context.Context) error { return nil }},
	)

	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != "ok" || r.Error != "" {
			t.Fatalf("unexpected result: %+v", r)
		}
	}
}

func TestProbeRunnerReportsFailure(t *testing.T) {
	runner := NewProbeRunner(time.Second,
		Probe{Name: "db", Check: func(context.Context) error { return nil }},
		Probe{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected not ready")
	}
	var failed *Result
	for i := range results {
		if results[i].Name == "redis" {
			failed = &results[i]
		}
	}
	if failed == nil || failed.Status != "unavailable" || failed.Error == "" {
		t.Fatalf("redis probe result: %+v", failed)
	}
}
