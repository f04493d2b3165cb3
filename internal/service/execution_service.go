package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"go-mod-console/internal/executor"
	"go-mod-console/internal/metrics"
	"go-mod-console/internal/model"
)

// ExecutionService turns an (operation, item-set, reason) triple into one
// bulk action call per variant present in the item-set and folds the
// per-variant responses into a single normalized ExecutionResult. It has no
// side effects beyond the executor calls: no retries, no selection mutation.
// Failures never escape as errors; they come back as result data.
type ExecutionService struct {
	executors executor.Registry
}

func NewExecutionService(executors executor.Registry) *ExecutionService {
	return &ExecutionService{executors: executors}
}

type partitionCall struct {
	variant model.RecordKind
	ids     []string
	result  executor.Result
	err     error
}

// Execute dispatches the operation. Partitions for different variants are
// fired concurrently and awaited collectively; no completion order is
// assumed. Aggregate counts always satisfy processed+failed == len(items).
func (s *ExecutionService) Execute(ctx context.Context, kind model.OperationKind, items []model.SelectableRecord, reason string) model.ExecutionResult {
	partitioned := map[model.RecordKind][]string{}
	for _, item := range items {
		partitioned[item.Kind] = append(partitioned[item.Kind], item.ID)
	}

	calls := make([]*partitionCall, 0, len(partitioned))
	for _, variant := range model.VariantOrder {
		ids := partitioned[variant]
		if len(ids) == 0 {
			continue
		}
		calls = append(calls, &partitionCall{variant: variant, ids: ids})
	}

	var wg sync.WaitGroup
	for _, call := range calls {
		exec, ok := s.executors[call.variant]
		if !ok {
			call.err = fmt.Errorf("no bulk executor configured for variant %q", call.variant)
			continue
		}

		wg.Add(1)
		go func(call *partitionCall) {
			defer wg.Done()
			call.result, call.err = exec.Execute(ctx, call.ids, reason)
		}(call)
	}
	wg.Wait()

	result := model.ExecutionResult{
		OperationID: mintOperationID(kind),
		Kind:        kind,
		Errors:      []model.ItemError{},
	}

	for _, call := range calls {
		if call.err != nil {
			// The executor answered with an error instead of a result: treat
			// every id submitted to it as failed so the attempt is not lost.
			slog.Warn("bulk executor call failed",
				"variant", call.variant, "kind", kind, "items", len(call.ids), "error", call.err)
			message := call.err.Error()
			if message == "" {
				message = "bulk action call failed"
			}
			result.FailedCount += len(call.ids)
			for _, id := range call.ids {
				result.Errors = append(result.Errors, model.ItemError{ItemID: id, Error: message})
			}
			continue
		}

		processed := call.result.ProcessedCount
		failed := call.result.FailedCount
		if processed+failed != len(call.ids) {
			// Hold the count invariant even when an executor reports sloppy
			// totals; the failed count wins since it is backed by errors.
			processed = len(call.ids) - failed
			if processed < 0 {
				processed = 0
				failed = len(call.ids)
			}
		}
		result.ProcessedCount += processed
		result.FailedCount += failed

		for _, failure := range call.result.Errors {
			message := failure.Error
			if message == "" {
				message = "operation failed"
			}
			result.Errors = append(result.Errors, model.ItemError{ItemID: failure.ItemID(), Error: message})
		}
	}

	result.Success = result.FailedCount == 0
	metrics.ObserveResult(string(kind), result.Success, result.ProcessedCount, result.FailedCount)
	return result
}

// mintOperationID creates a fresh audit-correlation token per attempt. The
// ULID suffix keeps ids time-sortable and collision-resistant; they carry no
// idempotency semantics.
func mintOperationID(kind model.OperationKind) string {
	return fmt.Sprintf("%s_%s", kind, ulid.Make().String())
}
