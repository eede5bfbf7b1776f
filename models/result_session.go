package models

// SessionState is the lifecycle state of one incremental result session.
type SessionState string

const (
	StateIdle        SessionState = "idle"
	StateSearching   SessionState = "searching"
	StateReady       SessionState = "ready"
	StateLoadingMore SessionState = "loadingMore"
	StateError       SessionState = "error"
)

// SessionSnapshot is a point-in-time copy of a result session, safe to hand
// to handlers and encoders while the session keeps mutating.
type SessionSnapshot struct {
	ID      string            `json:"sessionId"`
	State   SessionState      `json:"state"`
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"hasMore"`
	Hits    []SearchHit       `json:"hits"`
	Error   string            `json:"error,omitempty"`
}
