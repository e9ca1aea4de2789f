package engine

import (
	"github.com/arcidispatch/dispatch/pkg/config"
	"github.com/arcidispatch/dispatch/pkg/logging"
	"github.com/arcidispatch/dispatch/pkg/observer"
	"github.com/arcidispatch/dispatch/pkg/telemetry"
)

type dispatchSettings struct {
	outputs   []string
	cutoff    *float64
	wildcard  bool
	noCall    bool
	cfg       config.Config
	logger    *logging.Logger
	observers *observer.Manager
	telemetry *telemetry.Provider
	runID     string
	waitOverride map[string]bool
}

// DispatchOption configures a single Dispatch call.
type DispatchOption func(*dispatchSettings)

// Outputs declares the target data nodes; when every target has been
// visited the run stops early.
func Outputs(ids ...string) DispatchOption {
	return func(s *dispatchSettings) { s.outputs = ids }
}

// Cutoff bounds how far the traversal will extend past the starting node.
func Cutoff(v float64) DispatchOption {
	return func(s *dispatchSettings) { s.cutoff = &v }
}

// Wildcard marks input data nodes that are also declared outputs as
// wildcards: their value feeds downstream functions but is not itself
// recorded as an output.
func Wildcard(enabled bool) DispatchOption {
	return func(s *dispatchSettings) { s.wildcard = enabled }
}

// NoCall runs a dry pass: no function or aggregator is ever invoked, only
// the shape of the workflow that would fire is computed.
func NoCall() DispatchOption {
	return func(s *dispatchSettings) { s.noCall = true }
}

// WithConfig overrides the default Config for this call.
func WithConfig(cfg config.Config) DispatchOption {
	return func(s *dispatchSettings) { s.cfg = cfg }
}

// WithLogger attaches a logger used for soft-failure records.
func WithLogger(l *logging.Logger) DispatchOption {
	return func(s *dispatchSettings) { s.logger = l }
}

// WithObservers attaches an observer manager notified of lifecycle events.
func WithObservers(m *observer.Manager) DispatchOption {
	return func(s *dispatchSettings) { s.observers = m }
}

// WithTelemetry attaches a telemetry provider instrumenting this run.
func WithTelemetry(p *telemetry.Provider) DispatchOption {
	return func(s *dispatchSettings) { s.telemetry = p }
}

// WithRunID overrides the auto-generated run id, useful for tests wanting
// deterministic output.
func WithRunID(id string) DispatchOption {
	return func(s *dispatchSettings) { s.runID = id }
}

// WithWaitOverride replaces the per-run wait-inputs override this call would
// otherwise compute from the dispatcher's static graph. pkg/transform's
// ShrinkDsp uses this to probe reachability with some override entries
// temporarily cleared, the way repeated dispatch calls share one mutable
// override map in the original algorithm.
func WithWaitOverride(override map[string]bool) DispatchOption {
	return func(s *dispatchSettings) { s.waitOverride = override }
}
