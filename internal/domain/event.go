package domain

import "time"

const (
	EntityLoan  = "loan"
	EntitySheet = "collection_sheet"
)

// TransitionEvent is emitted for every successful state transition. The sink
// (log file, audit table) is external to this core.
type TransitionEvent struct {
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}
