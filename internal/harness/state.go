package harness

// State is the point a run has reached. States only move forward; Aborted is
// reachable from Unauthenticated alone.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateUploadsAttempted
	StateQueriesAttempted
	StateAgentQueriesAttempted
	StateProfileChecked
	StateAgentSmokeChecked
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateUploadsAttempted:
		return "uploads_attempted"
	case StateQueriesAttempted:
		return "queries_attempted"
	case StateAgentQueriesAttempted:
		return "agent_queries_attempted"
	case StateProfileChecked:
		return "profile_checked"
	case StateAgentSmokeChecked:
		return "agent_smoke_checked"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
