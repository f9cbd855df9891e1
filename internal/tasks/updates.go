package tasks

// ProgressUpdate represents a progress event during a sync cycle.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Cycle phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Cycle phase enumeration
type Phase int

const (
	Idle Phase = iota
	FetchingTokens
	FetchingSnapshots
	Resolving
	ApplyingWrites
	Reporting
	Sleeping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case FetchingTokens:
		return "fetching_tokens"
	case FetchingSnapshots:
		return "fetching_snapshots"
	case Resolving:
		return "resolving"
	case ApplyingWrites:
		return "applying_writes"
	case Reporting:
		return "reporting"
	case Sleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}
