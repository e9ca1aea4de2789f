package engine

// Run is the per-run state a single Dispatch call produces: the workflow
// graph of edges that actually fired, the estimated data outputs, the
// final distance to every visited node, and bookkeeping the algorithm
// needs while it runs.
type Run struct {
	RunID string

	Workflow   *WorkflowGraph
	DataOutput map[string]any
	Dist       map[string]float64
	Visited    map[string]bool

	targets        map[string]bool
	wildcards      map[string]bool
	waitInOverride map[string]bool
	cutoff         *float64
}

// Outcome reports whether a dispatch ran to natural completion (fringe
// exhausted or all targets satisfied) for telemetry/observer labeling.
type Outcome string

const (
	OutcomeCompleted      Outcome = "completed"
	OutcomeTargetsReached Outcome = "targets_reached"
	OutcomeError          Outcome = "error"
)
