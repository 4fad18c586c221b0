package catalog

import "time"

// TopicMutation is published on the event bus after every successful
// catalog mutation. The app subscribes an audit-log writer to it.
const TopicMutation = "catalog:mutation"

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type MutationEvent struct {
	UserID   string    `json:"user_id"`
	StoreID  string    `json:"store_id"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}
