// Package config holds the run-level knobs that bound a dispatcher's
// behaviour: failure policy, default cutoff, and the defensive limits that
// keep a malformed or adversarial graph from running away.
package config

import "fmt"

// Config is immutable once constructed; callers that need a variant should
// Clone and adjust the copy.
type Config struct {
	// DefaultCutoff, when non-nil, is used by Dispatch whenever a call
	// does not supply its own cutoff.
	DefaultCutoff *float64

	// Raises, when true, turns a node-level soft failure (a function or
	// aggregator panic or error return) into a hard error that aborts the
	// run instead of being logged and skipped. An input-domain rejection is
	// not a failure and a callback panic is only logged; neither is
	// promoted.
	Raises bool

	// MaxNodes and MaxEdges are size limits checked by Validate; zero
	// means unbounded. No builder or Dispatch call reads them, so they do
	// not limit the size of a dispatcher.
	MaxNodes int
	MaxEdges int

	// MaxDispatchSteps bounds the number of fringe pops a single Dispatch
	// call will perform, as a defensive backstop beyond the algorithm's
	// natural termination.
	MaxDispatchSteps int

	// MaxShrinkIterations bounds ShrinkDsp's fixed-point loop. Zero means
	// "use the dispatcher's current data-node count", which is always
	// sufficient: a non-terminal round must add at least one data node.
	MaxShrinkIterations int

	// MaxSubDispatchDepth is a nesting limit checked by Validate.
	// SubDispatch and SubDispatchFunction do not read it, so nesting depth
	// is not bounded by this setting.
	MaxSubDispatchDepth int
}

// Default returns the baseline configuration: no cutoff, soft failures
// logged and skipped, generous but finite limits.
func Default() Config {
	return Config{
		Raises:              false,
		MaxNodes:            100_000,
		MaxEdges:            1_000_000,
		MaxDispatchSteps:    10_000_000,
		MaxShrinkIterations: 0,
		MaxSubDispatchDepth: 64,
	}
}

// Development loosens limits and promotes soft failures to hard ones so
// mistakes surface immediately while a graph is being written.
func Development() Config {
	c := Default()
	c.Raises = true
	c.MaxNodes = 0
	c.MaxEdges = 0
	return c
}

// Production tightens limits for a long-running process evaluating
// untrusted or generated graphs.
func Production() Config {
	c := Default()
	c.Raises = false
	c.MaxNodes = 10_000
	c.MaxEdges = 100_000
	c.MaxDispatchSteps = 1_000_000
	c.MaxSubDispatchDepth = 32
	return c
}

// Validate reports a descriptive error for any nonsensical setting.
func (c Config) Validate() error {
	if c.MaxNodes < 0 {
		return fmt.Errorf("config: MaxNodes must be >= 0, got %d", c.MaxNodes)
	}
	if c.MaxEdges < 0 {
		return fmt.Errorf("config: MaxEdges must be >= 0, got %d", c.MaxEdges)
	}
	if c.MaxDispatchSteps < 0 {
		return fmt.Errorf("config: MaxDispatchSteps must be >= 0, got %d", c.MaxDispatchSteps)
	}
	if c.MaxShrinkIterations < 0 {
		return fmt.Errorf("config: MaxShrinkIterations must be >= 0, got %d", c.MaxShrinkIterations)
	}
	if c.MaxSubDispatchDepth < 0 {
		return fmt.Errorf("config: MaxSubDispatchDepth must be >= 0, got %d", c.MaxSubDispatchDepth)
	}
	if c.DefaultCutoff != nil && *c.DefaultCutoff < 0 {
		return fmt.Errorf("config: DefaultCutoff must be >= 0, got %g", *c.DefaultCutoff)
	}
	return nil
}

// Clone returns a value copy; Config has no reference fields besides the
// *float64 cutoff, which Clone deep-copies so mutating one copy's cutoff
// never affects another's.
func (c Config) Clone() Config {
	if c.DefaultCutoff != nil {
		v := *c.DefaultCutoff
		c.DefaultCutoff = &v
	}
	return c
}
