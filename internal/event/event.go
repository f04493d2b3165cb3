package event

type Type string

const (
	TypeSessionCreated     Type = "session.created"
	TypeSessionClosed      Type = "session.closed"
	TypeSelectionCleared   Type = "selection.cleared"
	TypeOperationStarted   Type = "operation.started"
	TypeOperationCompleted Type = "operation.completed"
	TypeOperationPartial   Type = "operation.partial"
	TypeOperationFailed    Type = "operation.failed"
	TypeOperationRetried   Type = "operation.retried"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
