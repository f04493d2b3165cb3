package service

import (
	"context"
	"log/slog"
	"net/http"

	"go-mod-console/internal/model"
	"go-mod-console/pkg/apierror"
)

// RetryService re-invokes the execution engine restricted to the ids that
// failed on the previous attempt. Only the narrowed failed subset is
// resubmitted, with the original reason; re-running the whole original
// selection would repeat already-processed mutations.
type RetryService struct {
	engine *ExecutionService
}

func NewRetryService(engine *ExecutionService) *RetryService {
	return &RetryService{engine: engine}
}

// Retry resolves the previous attempt's failed ids back to records via the
// original selection snapshot and executes just those. Ids that can no longer
// be resolved are dropped with a logged inconsistency instead of aborting the
// whole retry.
func (s *RetryService) Retry(ctx context.Context, kind model.OperationKind, previous model.ExecutionResult, original []model.SelectableRecord, reason string) (model.ExecutionResult, error) {
	if previous.FailedCount == 0 || len(previous.Errors) == 0 {
		return model.ExecutionResult{}, apierror.New("BAD_REQUEST", "previous attempt has no failed items", "", http.StatusBadRequest)
	}

	byID := make(map[string]model.SelectableRecord, len(original))
	for _, record := range original {
		byID[record.ID] = record
	}

	resolved := make([]model.SelectableRecord, 0, len(previous.Errors))
	seen := map[string]struct{}{}
	for _, failure := range previous.Errors {
		if _, dup := seen[failure.ItemID]; dup {
			continue
		}
		seen[failure.ItemID] = struct{}{}

		record, ok := byID[failure.ItemID]
		if !ok {
			slog.Warn("failed item not resolvable against original selection; dropping from retry",
				"item_id", failure.ItemID, "kind", kind)
			continue
		}
		resolved = append(resolved, record)
	}

	if len(resolved) == 0 {
		return model.ExecutionResult{}, apierror.New("CONFLICT", "none of the failed items could be resolved for retry", "", http.StatusConflict)
	}

	return s.engine.Execute(ctx, kind, resolved, reason), nil
}
