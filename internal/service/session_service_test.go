package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-mod-console/internal/executor"
	"go-mod-console/internal/model"
	"go-mod-console/pkg/apierror"
)

type memOperationStore struct {
	mu      sync.Mutex
	records []model.OperationRecord
}

func (s *memOperationStore) Insert(_ context.Context, record model.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memOperationStore) ListBySession(_ context.Context, sessionID string, page int, limit int) ([]model.OperationRecord, model.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]model.OperationRecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].SessionID == sessionID {
			matched = append(matched, s.records[i])
		}
	}
	return matched, model.Meta{Page: page, Limit: limit, Total: len(matched), TotalPages: 1}, nil
}

// blockingExecutor parks inside Execute until released, to exercise the
// in-flight guard.
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExecutor) Execute(_ context.Context, ids []string, _ string) (executor.Result, error) {
	close(b.started)
	<-b.release
	return executor.Result{ProcessedCount: len(ids)}, nil
}

func newTestSessionService(registry executor.Registry) (*SessionService, *memOperationStore) {
	engine := NewExecutionService(registry)
	store := &memOperationStore{}
	svc := NewSessionService(engine, NewRetryService(engine), NewAuditService(nil), store, nil)
	return svc, store
}

func testActor() model.AuditActor {
	return model.AuditActor{UserID: "mod-1", Username: "moderator", Role: "moderator", IP: "127.0.0.1"}
}

func TestSessionService_CreateAndClose(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	ctx := context.Background()

	data := svc.Create(ctx, testActor())
	assert.NotEmpty(t, data.SessionID)
	assert.NotEmpty(t, data.CreatedAt)

	require.NoError(t, svc.Close(ctx, data.SessionID, testActor()))

	err := svc.Close(ctx, data.SessionID, testActor())
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestSessionService_UnknownSession(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})

	_, err := svc.Selection("missing")
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	_, _, err = svc.History(context.Background(), "missing", 1, 20)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestSessionService_SelectionFlow(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.SetPage(session.SessionID, []model.SelectableRecord{
		accountRecord("u1"), accountRecord("u2"),
	})
	require.NoError(t, err)

	data, err := svc.Select(session.SessionID, []model.SelectableRecord{accountRecord("u1")})
	require.NoError(t, err)
	assert.Equal(t, 1, data.Total)
	assert.False(t, data.IsAllSelectedOnPage)

	// Partial page toggles to fully selected.
	data, err = svc.ToggleSelectAllOnPage(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Total)
	assert.True(t, data.IsAllSelectedOnPage)

	data, err = svc.Deselect(session.SessionID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, data.Total)

	data, err = svc.SelectNone(session.SessionID)
	require.NoError(t, err)
	assert.Zero(t, data.Total)
}

func TestSessionService_SelectValidatesRecords(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	session := svc.Create(context.Background(), testActor())

	_, err := svc.Select(session.SessionID, []model.SelectableRecord{
		{ID: "u1", Kind: model.RecordKindAccount}, // missing account payload
	})
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)

	_, err = svc.Select(session.SessionID, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestSessionService_ImmediateOperationExecutes(t *testing.T) {
	t.Parallel()

	media := new(executor.MockExecutor)
	media.On("Execute", mock.Anything, []string{"v1"}, "").
		Return(executor.Result{ProcessedCount: 1}, nil)

	svc, store := newTestSessionService(executor.Registry{model.RecordKindMedia: media})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Select(session.SessionID, []model.SelectableRecord{mediaRecord("v1")})
	require.NoError(t, err)

	// approve_media does not require confirmation, so Start executes directly.
	data, err := svc.Start(ctx, session.SessionID, model.OperationApproveMedia, testActor())
	require.NoError(t, err)
	assert.Equal(t, model.GateNotStarted, data.State)
	require.NotNil(t, data.Result)
	assert.True(t, data.Result.Success)

	// Full success clears the selection.
	selection, err := svc.Selection(session.SessionID)
	require.NoError(t, err)
	assert.Zero(t, selection.Total)

	history, _, err := svc.History(ctx, session.SessionID, 1, 20)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.AttemptInitial, history[0].Attempt)
	assert.Len(t, store.records, 1)
	media.AssertExpectations(t)
}

func TestSessionService_ConfirmationGate(t *testing.T) {
	t.Parallel()

	accounts := new(executor.MockExecutor)
	accounts.On("Execute", mock.Anything, []string{"u1"}, "coordinated spam").
		Return(executor.Result{ProcessedCount: 1}, nil)

	svc, _ := newTestSessionService(executor.Registry{model.RecordKindAccount: accounts})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Select(session.SessionID, []model.SelectableRecord{accountRecord("u1")})
	require.NoError(t, err)

	// suspend_accounts is destructive: Start parks the gate instead of firing.
	data, err := svc.Start(ctx, session.SessionID, model.OperationSuspendAccounts, testActor())
	require.NoError(t, err)
	assert.Equal(t, model.GateAwaitingReason, data.State)
	require.NotNil(t, data.Operation)
	assert.Nil(t, data.Result)
	accounts.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)

	// A blank (whitespace) reason is rejected and the gate stays open.
	_, err = svc.Confirm(ctx, session.SessionID, "   ", testActor())
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)

	result, err := svc.Confirm(ctx, session.SessionID, "  coordinated spam  ", testActor())
	require.NoError(t, err)
	assert.True(t, result.Success)
	accounts.AssertExpectations(t)
}

func TestSessionService_ConfirmWithoutGateIsConflict(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Confirm(ctx, session.SessionID, "reason", testActor())
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestSessionService_CancelResetsGate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Select(session.SessionID, []model.SelectableRecord{accountRecord("u1")})
	require.NoError(t, err)

	_, err = svc.Start(ctx, session.SessionID, model.OperationSuspendAccounts, testActor())
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(session.SessionID))
	// Idempotent when nothing is pending.
	require.NoError(t, svc.Cancel(session.SessionID))

	// After cancel the gate is closed again.
	_, err = svc.Confirm(ctx, session.SessionID, "reason", testActor())
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestSessionService_StartUnavailableOperation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Select(session.SessionID, []model.SelectableRecord{accountRecord("u1")})
	require.NoError(t, err)

	// No media selected, so a media operation is not offered.
	_, err = svc.Start(ctx, session.SessionID, model.OperationApproveMedia, testActor())
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestSessionService_PartialFailureKeepsSelectionAndRetries(t *testing.T) {
	t.Parallel()

	media := new(executor.MockExecutor)
	media.On("Execute", mock.Anything, []string{"v1", "v2"}, "").
		Return(executor.Result{
			ProcessedCount: 1,
			FailedCount:    1,
			Errors:         []executor.ItemFailure{{VideoID: "v2", Error: "timeout"}},
		}, nil).Once()
	media.On("Execute", mock.Anything, []string{"v2"}, "").
		Return(executor.Result{ProcessedCount: 1}, nil).Once()

	svc, store := newTestSessionService(executor.Registry{model.RecordKindMedia: media})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Select(session.SessionID, []model.SelectableRecord{mediaRecord("v1"), mediaRecord("v2")})
	require.NoError(t, err)

	data, err := svc.Start(ctx, session.SessionID, model.OperationApproveMedia, testActor())
	require.NoError(t, err)
	require.NotNil(t, data.Result)
	assert.False(t, data.Result.Success)

	// Selection survives a partial failure for a follow-up retry.
	selection, err := svc.Selection(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, selection.Total)

	result, err := svc.Retry(ctx, session.SessionID, testActor())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProcessedCount)

	// A fully successful retry clears the selection.
	selection, err = svc.Selection(session.SessionID)
	require.NoError(t, err)
	assert.Zero(t, selection.Total)

	// Both attempts are persisted, the retry marked as such.
	history, _, err := svc.History(ctx, session.SessionID, 1, 20)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.AttemptRetry, history[0].Attempt)
	assert.Equal(t, model.AttemptInitial, history[1].Attempt)
	assert.Len(t, store.records, 2)
	media.AssertExpectations(t)
}

func TestSessionService_RetryWithoutFailedAttempt(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Retry(ctx, session.SessionID, testActor())
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestSessionService_DoubleSubmissionIsConflict(t *testing.T) {
	t.Parallel()

	blocking := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	svc, _ := newTestSessionService(executor.Registry{model.RecordKindMedia: blocking})
	ctx := context.Background()
	session := svc.Create(ctx, testActor())

	_, err := svc.Select(session.SessionID, []model.SelectableRecord{mediaRecord("v1")})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Start(ctx, session.SessionID, model.OperationApproveMedia, testActor())
	}()

	select {
	case <-blocking.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first attempt never reached the executor")
	}

	// Second submit while the first is in flight must be rejected, not queued.
	_, err = svc.Start(ctx, session.SessionID, model.OperationApproveMedia, testActor())
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CONFLICT", apiErr.Code)

	close(blocking.release)
	<-done
}

func TestSessionService_OperationsCatalogFollowsSelection(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSessionService(executor.Registry{})
	session := svc.Create(context.Background(), testActor())

	operations, err := svc.Operations(session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, operations)

	_, err = svc.Select(session.SessionID, []model.SelectableRecord{eventRecord("e1")})
	require.NoError(t, err)

	operations, err = svc.Operations(session.SessionID)
	require.NoError(t, err)
	require.Len(t, operations, 2)
	assert.Equal(t, model.OperationActivateEvents, operations[0].Kind)
	assert.Equal(t, model.OperationDeactivateEvents, operations[1].Kind)
}
