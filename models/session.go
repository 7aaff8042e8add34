package models

// SessionState is the lifecycle state of one search session.
type SessionState string

const (
	SessionRunning    SessionState = "running"
	SessionSuperseded SessionState = "superseded"
	SessionCompleted  SessionState = "completed"
)

// SearchSession represents one in-flight aggregation. IDs are assigned
// monotonically; creating a new session supersedes any lower-numbered one
// still running. A superseded session's late-arriving offers are discarded
// at delivery time.
type SearchSession struct {
	ID    int64        `json:"id"`
	Query string       `json:"query"`
	State SessionState `json:"state"`
}
