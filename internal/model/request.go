package model

// Auth

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Moderation sessions

type SessionData struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

type PageRequest struct {
	Records []SelectableRecord `json:"records"`
}

type SelectRequest struct {
	Records []SelectableRecord `json:"records"`
}

// VariantCount summarizes how many records of one variant are selected.
type VariantCount struct {
	Variant RecordKind `json:"variant"`
	Count   int        `json:"count"`
}

type SelectionData struct {
	Items               []SelectableRecord `json:"items"`
	Total               int                `json:"total"`
	Variants            []VariantCount     `json:"variants"`
	IsAllSelectedOnPage bool               `json:"is_all_selected_on_page"`
}

// Operations

type ConfirmRequest struct {
	Reason string `json:"reason"`
}

// GateState mirrors the confirmation gate state machine exposed to clients.
type GateState string

const (
	GateNotStarted     GateState = "not_started"
	GateAwaitingReason GateState = "awaiting_reason"
)

// StartOperationData is returned when an operator picks a catalog entry:
// either the attempt executed immediately, or the gate is awaiting a reason.
type StartOperationData struct {
	State     GateState            `json:"state"`
	Operation *OperationDefinition `json:"operation,omitempty"`
	Result    *ExecutionResult     `json:"result,omitempty"`
}
