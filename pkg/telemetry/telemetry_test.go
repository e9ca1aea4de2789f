package telemetry

import (
	"context"
	"testing"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.EnableMetrics = false
	p, err := NewProvider(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// None of these should panic even though no meter was built.
	p.RecordDispatchRun(ctx, 0.1, "ok")
	p.RecordNodeEstimation(ctx, 0.01, "function")
	p.RecordSoftFailure(ctx, "n1")
	p.RecordCutoffRejection(ctx, "n1")
}

func TestNilProviderIsNoop(t *testing.T) {
	var p *Provider
	ctx := context.Background()
	p.RecordDispatchRun(ctx, 0.1, "ok")
}
