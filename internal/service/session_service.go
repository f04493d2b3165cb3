package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-mod-console/internal/event"
	"go-mod-console/internal/model"
	"go-mod-console/pkg/apierror"
)

// OperationStore persists the append-only history of execution attempts.
type OperationStore interface {
	Insert(ctx context.Context, record model.OperationRecord) error
	ListBySession(ctx context.Context, sessionID string, page int, limit int) ([]model.OperationRecord, model.Meta, error)
}

// SessionService owns every live moderation session and drives the
// selection → catalog → gate → execute → retry pipeline on behalf of the
// HTTP surface. All session state is guarded by the service mutex; the lock
// is released around executor calls so one slow backend cannot stall other
// sessions, with the per-session inFlight flag rejecting double submission.
type SessionService struct {
	engine     *ExecutionService
	retry      *RetryService
	audit      *AuditService
	operations OperationStore
	bus        event.Bus

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(engine *ExecutionService, retry *RetryService, audit *AuditService, operations OperationStore, bus event.Bus) *SessionService {
	return &SessionService{
		engine:     engine,
		retry:      retry,
		audit:      audit,
		operations: operations,
		bus:        bus,
		sessions:   map[string]*Session{},
	}
}

func (s *SessionService) Create(ctx context.Context, actor model.AuditActor) model.SessionData {
	session := newSession(uuid.NewString())

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.publish(event.TypeSessionCreated, actor, map[string]any{"session_id": session.ID})
	s.audit.Log(ctx, "session_create", actor, "success", session.ID, nil, nil, "")

	return model.SessionData{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (s *SessionService) Close(ctx context.Context, sessionID string, actor model.AuditActor) error {
	s.mu.Lock()
	_, exists := s.sessions[sessionID]
	if exists {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !exists {
		return apierror.New("NOT_FOUND", "moderation session not found", sessionID, http.StatusNotFound)
	}

	s.publish(event.TypeSessionClosed, actor, map[string]any{"session_id": sessionID})
	s.audit.Log(ctx, "session_close", actor, "success", sessionID, nil, nil, "")
	return nil
}

func (s *SessionService) SetPage(sessionID string, records []model.SelectableRecord) (model.SelectionData, error) {
	if err := validateRecords(records); err != nil {
		return model.SelectionData{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return model.SelectionData{}, err
	}

	session.SetPage(records)
	session.touch()
	return selectionData(session), nil
}

func (s *SessionService) Select(sessionID string, records []model.SelectableRecord) (model.SelectionData, error) {
	if len(records) == 0 {
		return model.SelectionData{}, apierror.New("BAD_REQUEST", "records are required", "records", http.StatusBadRequest)
	}
	if err := validateRecords(records); err != nil {
		return model.SelectionData{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return model.SelectionData{}, err
	}

	for _, record := range records {
		session.Select(record)
	}
	session.touch()
	return selectionData(session), nil
}

func (s *SessionService) Deselect(sessionID string, recordID string) (model.SelectionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return model.SelectionData{}, err
	}

	session.Deselect(recordID)
	session.touch()
	return selectionData(session), nil
}

func (s *SessionService) SelectNone(sessionID string) (model.SelectionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return model.SelectionData{}, err
	}

	session.ClearSelection()
	session.touch()
	return selectionData(session), nil
}

func (s *SessionService) ToggleSelectAllOnPage(sessionID string) (model.SelectionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return model.SelectionData{}, err
	}

	session.ToggleSelectAllOnPage()
	session.touch()
	return selectionData(session), nil
}

func (s *SessionService) Selection(sessionID string) (model.SelectionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return model.SelectionData{}, err
	}

	return selectionData(session), nil
}

// Operations returns the catalog legal for the session's current selection.
func (s *SessionService) Operations(sessionID string) ([]model.OperationDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return nil, err
	}

	return AvailableOperations(session.AllSelected()), nil
}

// Start is the operator picking a catalog entry. Operations that require
// confirmation park the session in the awaiting-reason gate state; everything
// else executes immediately with no reason.
func (s *SessionService) Start(ctx context.Context, sessionID string, kind model.OperationKind, actor model.AuditActor) (model.StartOperationData, error) {
	s.mu.Lock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		s.mu.Unlock()
		return model.StartOperationData{}, err
	}
	if session.inFlight {
		s.mu.Unlock()
		return model.StartOperationData{}, apierror.New("CONFLICT", "an execution attempt is already in flight", "", http.StatusConflict)
	}

	definition, offered := DefinitionFor(kind, session.AllSelected())
	if !offered {
		s.mu.Unlock()
		return model.StartOperationData{}, apierror.New("BAD_REQUEST", "operation is not available for the current selection", string(kind), http.StatusBadRequest)
	}

	if definition.RequiresConfirmation {
		session.gate = model.GateAwaitingReason
		session.pendingOp = &definition
		session.touch()
		s.mu.Unlock()
		return model.StartOperationData{State: model.GateAwaitingReason, Operation: &definition}, nil
	}

	result, err := s.executeLocked(ctx, session, definition, "", actor)
	if err != nil {
		return model.StartOperationData{}, err
	}
	return model.StartOperationData{State: model.GateNotStarted, Result: &result}, nil
}

// Confirm completes the gate for the pending operation. Destructive
// operations refuse a blank reason; for the rest the reason is optional.
func (s *SessionService) Confirm(ctx context.Context, sessionID string, reason string, actor model.AuditActor) (model.ExecutionResult, error) {
	s.mu.Lock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		s.mu.Unlock()
		return model.ExecutionResult{}, err
	}
	if session.inFlight {
		s.mu.Unlock()
		return model.ExecutionResult{}, apierror.New("CONFLICT", "an execution attempt is already in flight", "", http.StatusConflict)
	}
	if session.gate != model.GateAwaitingReason || session.pendingOp == nil {
		s.mu.Unlock()
		return model.ExecutionResult{}, apierror.New("CONFLICT", "no operation is awaiting confirmation", "", http.StatusConflict)
	}

	definition := *session.pendingOp
	trimmed := strings.TrimSpace(reason)
	if definition.Destructive && trimmed == "" {
		s.mu.Unlock()
		return model.ExecutionResult{}, apierror.New("BAD_REQUEST", "a justification is required for destructive operations", "reason", http.StatusBadRequest)
	}

	return s.executeLocked(ctx, session, definition, trimmed, actor)
}

// Cancel returns the gate to its initial state, discarding the pending
// operation and any partially typed reason. Idempotent.
func (s *SessionService) Cancel(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return err
	}

	session.resetGate()
	session.touch()
	return nil
}

// Retry re-submits only the ids that failed on the session's last attempt,
// with the same reason and without re-prompting the gate.
func (s *SessionService) Retry(ctx context.Context, sessionID string, actor model.AuditActor) (model.ExecutionResult, error) {
	s.mu.Lock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		s.mu.Unlock()
		return model.ExecutionResult{}, err
	}
	if session.inFlight {
		s.mu.Unlock()
		return model.ExecutionResult{}, apierror.New("CONFLICT", "an execution attempt is already in flight", "", http.StatusConflict)
	}

	last := session.lastAttempt
	if last == nil || last.result.Success {
		s.mu.Unlock()
		return model.ExecutionResult{}, apierror.New("BAD_REQUEST", "no failed attempt to retry", "", http.StatusBadRequest)
	}

	session.inFlight = true
	session.touch()
	s.mu.Unlock()

	s.publish(event.TypeOperationRetried, actor, map[string]any{
		"session_id": sessionID,
		"kind":       last.kind,
		"items":      last.result.FailedCount,
	})

	result, retryErr := s.retry.Retry(ctx, last.kind, last.result, last.items, last.reason)

	s.mu.Lock()
	session.inFlight = false
	if retryErr != nil {
		s.mu.Unlock()
		s.audit.Log(ctx, "operation_retry", actor, "failed", string(last.kind), map[string]any{"session_id": sessionID}, nil, retryErr.Error())
		return model.ExecutionResult{}, retryErr
	}

	// Keep the original selection snapshot as the resolution base for any
	// further retries; only the result advances.
	session.lastAttempt = &attempt{kind: last.kind, reason: last.reason, items: last.items, result: result}
	if result.Success {
		session.ClearSelection()
	}
	session.touch()
	s.mu.Unlock()

	s.finishAttempt(ctx, sessionID, last.reason, model.AttemptRetry, result, actor)
	return result, nil
}

// History lists the persisted attempts of one session, newest first.
func (s *SessionService) History(ctx context.Context, sessionID string, page int, limit int) ([]model.OperationRecord, model.Meta, error) {
	s.mu.RLock()
	_, exists := s.sessions[sessionID]
	s.mu.RUnlock()
	if !exists {
		return nil, model.Meta{}, apierror.New("NOT_FOUND", "moderation session not found", sessionID, http.StatusNotFound)
	}

	return s.operations.ListBySession(ctx, sessionID, page, limit)
}

// StartCleanupTicker expires sessions idle longer than ttl until ctx is done.
func (s *SessionService) StartCleanupTicker(ctx context.Context, ttl time.Duration, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireIdle(ttl)
		}
	}
}

func (s *SessionService) expireIdle(ttl time.Duration) {
	cutoff := time.Now().UTC().Add(-ttl)
	expired := make([]string, 0)

	s.mu.Lock()
	for id, session := range s.sessions {
		if session.inFlight {
			continue
		}
		if session.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		slog.Info("expired idle moderation session", "session_id", id)
		s.publish(event.TypeSessionClosed, model.AuditActor{}, map[string]any{"session_id": id, "expired": true})
	}
}

// executeLocked runs one attempt for a validated definition. Called with the
// service lock held; it releases the lock around the engine call and marks
// the session in flight so a concurrent submit is rejected, not queued.
func (s *SessionService) executeLocked(ctx context.Context, session *Session, definition model.OperationDefinition, reason string, actor model.AuditActor) (model.ExecutionResult, error) {
	items := session.SelectedOfVariant(definition.Variant)
	if len(items) == 0 {
		session.resetGate()
		s.mu.Unlock()
		return model.ExecutionResult{}, apierror.New("BAD_REQUEST", "no selected records match the operation's variant", string(definition.Kind), http.StatusBadRequest)
	}

	session.inFlight = true
	session.resetGate()
	session.touch()
	sessionID := session.ID
	s.mu.Unlock()

	s.publish(event.TypeOperationStarted, actor, map[string]any{
		"session_id": sessionID,
		"kind":       definition.Kind,
		"items":      len(items),
	})

	result := s.engine.Execute(ctx, definition.Kind, items, reason)

	s.mu.Lock()
	session.inFlight = false
	session.lastAttempt = &attempt{kind: definition.Kind, reason: reason, items: items, result: result}
	if result.Success {
		session.ClearSelection()
	}
	session.touch()
	s.mu.Unlock()

	s.finishAttempt(ctx, sessionID, reason, model.AttemptInitial, result, actor)
	return result, nil
}

// finishAttempt persists, audits and broadcasts one normalized result.
func (s *SessionService) finishAttempt(ctx context.Context, sessionID string, reason string, attemptKind model.AttemptKind, result model.ExecutionResult, actor model.AuditActor) {
	record := model.OperationRecord{
		OperationID:    result.OperationID,
		SessionID:      sessionID,
		Kind:           result.Kind,
		Attempt:        attemptKind,
		Reason:         reason,
		Success:        result.Success,
		ProcessedCount: result.ProcessedCount,
		FailedCount:    result.FailedCount,
		Errors:         result.Errors,
		Actor:          actor,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}
	if s.operations != nil {
		if err := s.operations.Insert(ctx, record); err != nil {
			slog.Error("failed to persist operation record", "operation_id", result.OperationID, "error", err)
		}
	}

	status := "failed"
	eventType := event.TypeOperationFailed
	switch {
	case result.Success:
		status = "success"
		eventType = event.TypeOperationCompleted
	case result.ProcessedCount > 0:
		status = "partial"
		eventType = event.TypeOperationPartial
	}

	action := "operation_execute"
	if attemptKind == model.AttemptRetry {
		action = "operation_retry"
	}
	s.audit.Log(ctx, action, actor, status, result.OperationID,
		map[string]any{"session_id": sessionID, "kind": result.Kind, "reason": reason},
		map[string]any{"processed_count": result.ProcessedCount, "failed_count": result.FailedCount},
		"")

	s.publish(eventType, actor, map[string]any{
		"session_id":      sessionID,
		"operation_id":    result.OperationID,
		"kind":            result.Kind,
		"processed_count": result.ProcessedCount,
		"failed_count":    result.FailedCount,
	})

	if result.Success {
		s.publish(event.TypeSelectionCleared, actor, map[string]any{"session_id": sessionID})
	}
}

func (s *SessionService) getLocked(sessionID string) (*Session, error) {
	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, apierror.New("NOT_FOUND", "moderation session not found", sessionID, http.StatusNotFound)
	}
	return session, nil
}

func (s *SessionService) publish(eventType event.Type, actor model.AuditActor, payload map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actor.UserID,
	})
}

func selectionData(session *Session) model.SelectionData {
	items := session.AllSelected()

	counts := map[model.RecordKind]int{}
	for _, record := range items {
		counts[record.Kind]++
	}
	variants := make([]model.VariantCount, 0, len(counts))
	for _, variant := range model.VariantOrder {
		if counts[variant] > 0 {
			variants = append(variants, model.VariantCount{Variant: variant, Count: counts[variant]})
		}
	}

	return model.SelectionData{
		Items:               items,
		Total:               len(items),
		Variants:            variants,
		IsAllSelectedOnPage: session.IsAllSelectedOnPage(),
	}
}

func validateRecords(records []model.SelectableRecord) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return apierror.New("BAD_REQUEST", "invalid record", err.Error(), http.StatusBadRequest)
		}
	}
	return nil
}
