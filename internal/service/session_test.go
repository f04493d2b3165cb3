package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mod-console/internal/model"
)

func TestSession_SelectIsIdempotent(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.Select(accountRecord("u1"))
	session.Select(accountRecord("u1"))

	assert.Len(t, session.AllSelected(), 1)
	assert.True(t, session.IsSelected("u1"))
}

func TestSession_DeselectMissingIsNoop(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.Select(accountRecord("u1"))
	session.Deselect("u2")

	assert.Len(t, session.AllSelected(), 1)
}

func TestSession_SelectionSurvivesPageChanges(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.SetPage([]model.SelectableRecord{accountRecord("u1"), accountRecord("u2")})
	session.Select(accountRecord("u1"))

	// Paginate away and back; the registry entry must persist.
	session.SetPage([]model.SelectableRecord{accountRecord("u3"), accountRecord("u4")})
	assert.True(t, session.IsSelected("u1"))

	session.SetPage([]model.SelectableRecord{accountRecord("u1"), accountRecord("u2")})
	assert.True(t, session.IsSelected("u1"))
	assert.False(t, session.IsAllSelectedOnPage())
}

func TestSession_ToggleAsymmetry(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.SetPage([]model.SelectableRecord{
		accountRecord("u1"), accountRecord("u2"), accountRecord("u3"),
	})

	// Partially selected page toggles to fully selected.
	session.Select(accountRecord("u1"))
	session.ToggleSelectAllOnPage()
	assert.True(t, session.IsAllSelectedOnPage())
	assert.Len(t, session.AllSelected(), 3)

	// Fully selected page toggles to cleared.
	session.ToggleSelectAllOnPage()
	assert.False(t, session.IsAllSelectedOnPage())
	assert.Empty(t, session.AllSelected())
}

func TestSession_TogglePreservesOffPageSelections(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.Select(mediaRecord("v1"))

	session.SetPage([]model.SelectableRecord{accountRecord("u1"), accountRecord("u2")})
	session.ToggleSelectAllOnPage()
	require.Len(t, session.AllSelected(), 3)

	// Deselecting the page leaves the off-page media selection alone.
	session.ToggleSelectAllOnPage()
	selected := session.AllSelected()
	require.Len(t, selected, 1)
	assert.Equal(t, "v1", selected[0].ID)
}

func TestSession_EmptyPageIsNeverAllSelected(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	assert.False(t, session.IsAllSelectedOnPage())

	// Toggling an empty page selects nothing.
	session.ToggleSelectAllOnPage()
	assert.Empty(t, session.AllSelected())
	assert.False(t, session.IsAllSelectedOnPage())
}

func TestSession_AllSelectedOrdering(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.Select(eventRecord("e1"))
	session.Select(accountRecord("u2"))
	session.Select(mediaRecord("v1"))
	session.Select(accountRecord("u1"))

	ids := make([]string, 0)
	for _, record := range session.AllSelected() {
		ids = append(ids, record.ID)
	}
	assert.Equal(t, []string{"u1", "u2", "v1", "e1"}, ids)
}

func TestSession_SelectedOfVariant(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.Select(accountRecord("u1"))
	session.Select(mediaRecord("v1"))
	session.Select(mediaRecord("v2"))

	media := session.SelectedOfVariant(model.RecordKindMedia)
	require.Len(t, media, 2)
	assert.Equal(t, "v1", media[0].ID)
	assert.Equal(t, "v2", media[1].ID)

	assert.Empty(t, session.SelectedOfVariant(model.RecordKindEvent))
}

func TestSession_ClearSelection(t *testing.T) {
	t.Parallel()

	session := newSession("s1")
	session.SetPage([]model.SelectableRecord{accountRecord("u1")})
	session.Select(accountRecord("u1"))
	session.Select(mediaRecord("v1"))

	session.ClearSelection()
	assert.Empty(t, session.AllSelected())

	// Page membership is unaffected; only the registry is emptied.
	assert.False(t, session.IsAllSelectedOnPage())
	session.SelectAllOnPage()
	assert.True(t, session.IsAllSelectedOnPage())
}
