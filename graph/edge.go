package graph

// EdgeKind distinguishes the two edge classes the scheduler treats
// differently.
type EdgeKind int

const (
	// EdgeRegular is an ordinary dependency edge: the target cannot build
	// until the source has produced the connected output.
	EdgeRegular EdgeKind = iota

	// EdgeLoopBack is an intentional cycle marker: it feeds a downstream
	// result back to an ancestor loop vertex and is excluded from cycle
	// detection and initial readiness.
	EdgeLoopBack
)

// String returns a readable kind name.
func (k EdgeKind) String() string {
	switch k {
	case EdgeRegular:
		return "regular"
	case EdgeLoopBack:
		return "loop-back"
	default:
		return "unknown"
	}
}

// Edge is one directed connection between two vertices, resolved from the
// definition with default slot names applied.
type Edge struct {
	// Source and Target are vertex ids.
	Source string
	Target string

	// SourceOutput is the output slot on the source vertex this edge
	// carries.
	SourceOutput string

	// TargetInput is the input slot on the target vertex this edge feeds.
	TargetInput string

	// Kind classifies the edge.
	Kind EdgeKind
}

// IsLoopBack reports whether the edge closes an intentional cycle.
func (e Edge) IsLoopBack() bool { return e.Kind == EdgeLoopBack }
