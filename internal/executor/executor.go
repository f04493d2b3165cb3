// Package executor defines the boundary to the per-variant bulk action
// services that actually perform moderation mutations. The console only
// submits ids and an optional reason; everything else (eligibility, timeouts,
// item ordering) is owned by the remote side.
package executor

import (
	"context"

	"go-mod-console/internal/model"
)

// Result is the wire shape every bulk action endpoint resolves with. Error
// entries carry a variant-specific id field; the execution engine renames it
// to the uniform item id during normalization.
type Result struct {
	ProcessedCount int           `json:"processedCount"`
	FailedCount    int           `json:"failedCount"`
	Errors         []ItemFailure `json:"errors"`
}

type ItemFailure struct {
	UserID  string `json:"userId,omitempty"`
	VideoID string `json:"videoId,omitempty"`
	EventID string `json:"eventId,omitempty"`
	Error   string `json:"error"`
}

// ItemID returns whichever variant-specific id field the executor populated.
func (f ItemFailure) ItemID() string {
	switch {
	case f.UserID != "":
		return f.UserID
	case f.VideoID != "":
		return f.VideoID
	default:
		return f.EventID
	}
}

// BulkExecutor performs one moderation action against a batch of ids. A
// returned error means the whole call failed and no per-item outcome is
// known; the caller treats every submitted id as failed.
type BulkExecutor interface {
	Execute(ctx context.Context, ids []string, reason string) (Result, error)
}

// Registry maps each record variant to its bulk action executor.
type Registry map[model.RecordKind]BulkExecutor
