package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-mod-console/internal/model"
	"go-mod-console/internal/service"
	"go-mod-console/pkg/apierror"
)

type SessionHandler struct {
	service *service.SessionService
}

func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	data := h.service.Create(r.Context(), actorFromRequest(r))
	writeSuccess(w, http.StatusCreated, data, nil)
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.Close(r.Context(), sessionID, actorFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"closed": true}, nil)
}

// SetPage replaces the session's notion of the currently visible page. The
// selection itself is untouched; records selected on other pages stay
// selected.
func (h *SessionHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	sessionID := chi.URLParam(r, "sessionID")

	var payload model.PageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	data, err := h.service.SetPage(sessionID, payload.Records)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	sessionID := chi.URLParam(r, "sessionID")

	var payload model.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	data, err := h.service.Select(sessionID, payload.Records)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *SessionHandler) Deselect(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	recordID := strings.TrimSpace(chi.URLParam(r, "recordID"))

	if recordID == "" {
		writeError(w, apierror.New("BAD_REQUEST", "record id is required", "recordID", http.StatusBadRequest))
		return
	}

	data, err := h.service.Deselect(sessionID, recordID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *SessionHandler) SelectNone(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	data, err := h.service.SelectNone(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

// TogglePage selects every record on the visible page unless all of them are
// already selected, in which case it deselects them.
func (h *SessionHandler) TogglePage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	data, err := h.service.ToggleSelectAllOnPage(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *SessionHandler) Selection(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	data, err := h.service.Selection(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}
