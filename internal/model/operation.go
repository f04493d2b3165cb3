package model

// OperationKind is the closed enum of bulk moderation actions the console can
// dispatch. Each kind targets exactly one record variant.
type OperationKind string

const (
	OperationSuspendAccounts  OperationKind = "suspend_accounts"
	OperationVerifyAccounts   OperationKind = "verify_accounts"
	OperationActivateAccounts OperationKind = "activate_accounts"
	OperationApproveMedia     OperationKind = "approve_media"
	OperationRejectMedia      OperationKind = "reject_media"
	OperationFlagMedia        OperationKind = "flag_media"
	OperationActivateEvents   OperationKind = "activate_events"
	OperationDeactivateEvents OperationKind = "deactivate_events"
)

func (k OperationKind) Valid() bool {
	switch k {
	case OperationSuspendAccounts, OperationVerifyAccounts, OperationActivateAccounts,
		OperationApproveMedia, OperationRejectMedia, OperationFlagMedia,
		OperationActivateEvents, OperationDeactivateEvents:
		return true
	}
	return false
}

// OperationDefinition is an immutable catalog entry offered for the current
// selection. Label and Description carry the selected count already
// substituted.
type OperationDefinition struct {
	Kind                 OperationKind `json:"kind"`
	Variant              RecordKind    `json:"variant"`
	Label                string        `json:"label"`
	Description          string        `json:"description"`
	RequiresConfirmation bool          `json:"requires_confirmation"`
	Destructive          bool          `json:"destructive"`
}

// ItemError is the uniform per-item failure shape. Variant-specific id fields
// from executor responses are renamed to ItemID during normalization.
type ItemError struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// ExecutionResult is the normalized outcome of one execution attempt.
// Invariants: ProcessedCount+FailedCount equals the number of items submitted
// in the attempt, and Success is true iff FailedCount is zero.
type ExecutionResult struct {
	OperationID    string        `json:"operation_id"`
	Kind           OperationKind `json:"kind"`
	Success        bool          `json:"success"`
	ProcessedCount int           `json:"processed_count"`
	FailedCount    int           `json:"failed_count"`
	Errors         []ItemError   `json:"errors"`
}

// AttemptKind distinguishes first submissions from retries in the persisted
// operation history.
type AttemptKind string

const (
	AttemptInitial AttemptKind = "initial"
	AttemptRetry   AttemptKind = "retry"
)

type OperationHistoryData struct {
	Items []OperationRecord `json:"items"`
}

// OperationRecord is the persisted, append-only trace of one attempt.
type OperationRecord struct {
	OperationID    string        `json:"operation_id"`
	SessionID      string        `json:"session_id"`
	Kind           OperationKind `json:"kind"`
	Attempt        AttemptKind   `json:"attempt"`
	Reason         string        `json:"reason,omitempty"`
	Success        bool          `json:"success"`
	ProcessedCount int           `json:"processed_count"`
	FailedCount    int           `json:"failed_count"`
	Errors         []ItemError   `json:"errors"`
	Actor          AuditActor    `json:"actor"`
	CreatedAt      string        `json:"created_at"`
}
