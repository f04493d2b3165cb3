package service

import (
	"sort"
	"time"

	"go-mod-console/internal/model"
)

// attempt snapshots one execution so a later retry can resolve failed ids
// against the exact selection that was submitted, using the same reason.
type attempt struct {
	kind   model.OperationKind
	reason string
	items  []model.SelectableRecord
	result model.ExecutionResult
}

// Session holds the moderation state of one operator: the selection registry
// spanning all pages visited, the membership of the currently rendered page,
// the confirmation gate, and the last execution attempt. Sessions are mutated
// only under the owning SessionService's per-session lock; the operator UI is
// assumed to serialize its own events.
type Session struct {
	ID        string
	CreatedAt time.Time

	lastActive time.Time

	selected map[string]model.SelectableRecord
	page     []model.SelectableRecord

	gate      model.GateState
	pendingOp *model.OperationDefinition

	inFlight    bool
	lastAttempt *attempt
}

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
		selected:   map[string]model.SelectableRecord{},
		gate:       model.GateNotStarted,
	}
}

// Select inserts or overwrites the registry entry for the record. Idempotent.
func (s *Session) Select(record model.SelectableRecord) {
	s.selected[record.ID] = record
}

// Deselect removes the entry if present; no-op otherwise.
func (s *Session) Deselect(id string) {
	delete(s.selected, id)
}

func (s *Session) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SetPage replaces the page membership wholesale. Selections made on other
// pages are untouched.
func (s *Session) SetPage(records []model.SelectableRecord) {
	s.page = append([]model.SelectableRecord(nil), records...)
}

func (s *Session) SelectAllOnPage() {
	for _, record := range s.page {
		s.selected[record.ID] = record
	}
}

func (s *Session) DeselectAllOnPage() {
	for _, record := range s.page {
		delete(s.selected, record.ID)
	}
}

// ToggleSelectAllOnPage selects every record on the page unless all of them
// are already selected, in which case it deselects them. A partially selected
// page therefore toggles to fully selected, never to fully cleared.
func (s *Session) ToggleSelectAllOnPage() {
	if s.IsAllSelectedOnPage() {
		s.DeselectAllOnPage()
		return
	}
	s.SelectAllOnPage()
}

// IsAllSelectedOnPage reports whether every id on the current page is in the
// registry. An empty page is never "all selected".
func (s *Session) IsAllSelectedOnPage() bool {
	if len(s.page) == 0 {
		return false
	}
	for _, record := range s.page {
		if _, ok := s.selected[record.ID]; !ok {
			return false
		}
	}
	return true
}

// AllSelected returns every registry entry regardless of page, ordered by
// variant then id so repeated reads render identically.
func (s *Session) AllSelected() []model.SelectableRecord {
	items := make([]model.SelectableRecord, 0, len(s.selected))
	for _, record := range s.selected {
		items = append(items, record)
	}

	rank := map[model.RecordKind]int{}
	for i, variant := range model.VariantOrder {
		rank[variant] = i
	}
	sort.Slice(items, func(i int, j int) bool {
		if rank[items[i].Kind] != rank[items[j].Kind] {
			return rank[items[i].Kind] < rank[items[j].Kind]
		}
		return items[i].ID < items[j].ID
	})

	return items
}

// SelectedOfVariant filters the registry by discriminant.
func (s *Session) SelectedOfVariant(variant model.RecordKind) []model.SelectableRecord {
	items := make([]model.SelectableRecord, 0)
	for _, record := range s.AllSelected() {
		if record.Kind == variant {
			items = append(items, record)
		}
	}
	return items
}

// ClearSelection empties the registry, the caller-side cleanup after a fully
// successful operation.
func (s *Session) ClearSelection() {
	s.selected = map[string]model.SelectableRecord{}
}

func (s *Session) resetGate() {
	s.gate = model.GateNotStarted
	s.pendingOp = nil
}

func (s *Session) touch() {
	s.lastActive = time.Now().UTC()
}
