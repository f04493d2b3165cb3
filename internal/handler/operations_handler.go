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

type OperationsHandler struct {
	service *service.SessionService
}

func NewOperationsHandler(service *service.SessionService) *OperationsHandler {
	return &OperationsHandler{service: service}
}

// List returns the catalog of operations legal for the session's current
// selection, in a stable variant-major order.
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	operations, err := h.service.Operations(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"operations": operations}, nil)
}

func (h *OperationsHandler) Start(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	kind := model.OperationKind(strings.TrimSpace(chi.URLParam(r, "kind")))

	if !kind.Valid() {
		writeError(w, apierror.New("BAD_REQUEST", "unknown operation kind", string(kind), http.StatusBadRequest))
		return
	}

	data, err := h.service.Start(r.Context(), sessionID, kind, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *OperationsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	sessionID := chi.URLParam(r, "sessionID")

	var payload model.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	result, err := h.service.Confirm(r.Context(), sessionID, payload.Reason, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *OperationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.Cancel(sessionID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"cancelled": true}, nil)
}

func (h *OperationsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.service.Retry(r.Context(), sessionID, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *OperationsHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()

	items, meta, err := h.service.History(r.Context(), sessionID,
		parseIntOrDefault(query.Get("page"), 1),
		parseIntOrDefault(query.Get("limit"), 20))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.OperationHistoryData{Items: items}, &meta)
}
