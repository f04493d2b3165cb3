//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mod-console/internal/executor"
	"go-mod-console/internal/model"
)

func accountPayload(id string) map[string]any {
	return map[string]any{
		"id":      id,
		"kind":    "account",
		"account": map[string]any{"username": "user-" + id},
	}
}

func TestModerationFlow_SuspendWithGateAndRetry(t *testing.T) {
	t.Parallel()

	accounts := &scriptedExecutor{results: []executor.Result{
		{
			ProcessedCount: 1,
			FailedCount:    1,
			Errors:         []executor.ItemFailure{{UserID: "u2", Error: "lock contention"}},
		},
		{ProcessedCount: 1},
	}}
	server, token := newConsoleServer(t, executor.Registry{model.RecordKindAccount: accounts})

	// Open a session.
	var session model.SessionData
	resp := doAuthJSONRequest(t, http.MethodPost, server.URL+"/api/v1/sessions/", nil, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeData(t, resp, &session)
	base := server.URL + "/api/v1/sessions/" + session.SessionID

	// Render a page and select everything on it via the toggle.
	page, err := json.Marshal(map[string]any{
		"records": []any{accountPayload("u1"), accountPayload("u2")},
	})
	require.NoError(t, err)
	resp = doAuthJSONRequest(t, http.MethodPut, base+"/page", page, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var selection model.SelectionData
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/selection/toggle-page", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &selection)
	assert.Equal(t, 2, selection.Total)
	assert.True(t, selection.IsAllSelectedOnPage)

	// The catalog offers the three account operations with counts rendered in.
	var catalog struct {
		Operations []model.OperationDefinition `json:"operations"`
	}
	resp = doAuthJSONRequest(t, http.MethodGet, base+"/operations", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &catalog)
	require.Len(t, catalog.Operations, 3)
	assert.Equal(t, "Suspend 2 accounts", catalog.Operations[0].Label)
	assert.True(t, catalog.Operations[0].Destructive)

	// Starting a destructive operation parks the gate.
	var started model.StartOperationData
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/operations/suspend_accounts/start", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &started)
	assert.Equal(t, model.GateAwaitingReason, started.State)
	require.NotNil(t, started.Operation)
	assert.Empty(t, accounts.calls)

	// A blank reason is rejected for a destructive operation.
	blank, _ := json.Marshal(map[string]string{"reason": "   "})
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/operations/confirm", blank, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Confirming with a justification executes; the first attempt is partial.
	confirm, _ := json.Marshal(map[string]string{"reason": "coordinated spam ring"})
	var result model.ExecutionResult
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/operations/confirm", confirm, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &result)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "u2", result.Errors[0].ItemID)

	require.Len(t, accounts.calls, 1)
	assert.Equal(t, []string{"u1", "u2"}, accounts.calls[0])
	assert.Equal(t, "coordinated spam ring", accounts.reasons[0])

	// Retry resubmits only the failed id with the original reason.
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/operations/retry", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &result)
	assert.True(t, result.Success)

	require.Len(t, accounts.calls, 2)
	assert.Equal(t, []string{"u2"}, accounts.calls[1])
	assert.Equal(t, "coordinated spam ring", accounts.reasons[1])

	// The history records both attempts, newest first.
	var history model.OperationHistoryData
	resp = doAuthJSONRequest(t, http.MethodGet, base+"/operations/history", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &history)
	require.Len(t, history.Items, 2)
	assert.Equal(t, model.AttemptRetry, history.Items[0].Attempt)
	assert.True(t, history.Items[0].Success)
	assert.Equal(t, model.AttemptInitial, history.Items[1].Attempt)
	assert.False(t, history.Items[1].Success)

	// The selection was cleared by the fully successful retry.
	resp = doAuthJSONRequest(t, http.MethodGet, base+"/selection", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &selection)
	assert.Zero(t, selection.Total)

	// The audit trail saw the execute and the retry.
	var audit model.AuditListData
	resp = doAuthJSONRequest(t, http.MethodGet, server.URL+"/api/v1/audit?action=operation_retry", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &audit)
	require.Len(t, audit.Items, 1)
	assert.Equal(t, "success", audit.Items[0].Status)
}

func TestModerationFlow_ImmediateOperationSkipsGate(t *testing.T) {
	t.Parallel()

	accounts := &scriptedExecutor{}
	server, token := newConsoleServer(t, executor.Registry{model.RecordKindAccount: accounts})

	var session model.SessionData
	resp := doAuthJSONRequest(t, http.MethodPost, server.URL+"/api/v1/sessions/", nil, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeData(t, resp, &session)
	base := server.URL + "/api/v1/sessions/" + session.SessionID

	selectBody, _ := json.Marshal(map[string]any{"records": []any{accountPayload("u1")}})
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/selection", selectBody, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// activate_accounts runs without confirmation and without a reason.
	var started model.StartOperationData
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/operations/activate_accounts/start", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &started)
	assert.Equal(t, model.GateNotStarted, started.State)
	require.NotNil(t, started.Result)
	assert.True(t, started.Result.Success)

	require.Len(t, accounts.calls, 1)
	assert.Equal(t, "", accounts.reasons[0])
}

func TestModerationFlow_AuthAndRoles(t *testing.T) {
	t.Parallel()

	server, token := newConsoleServer(t, executor.Registry{})

	// No token at all.
	resp, err := http.Post(server.URL+"/api/v1/sessions/", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Register a viewer; viewers can browse but not execute.
	register, _ := json.Marshal(map[string]string{"username": "eyes", "password": "watch123", "role": "viewer"})
	resp = doAuthJSONRequest(t, http.MethodPost, server.URL+"/api/v1/auth/register", register, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	login, _ := json.Marshal(map[string]string{"username": "eyes", "password": "watch123"})
	resp = doAuthJSONRequest(t, http.MethodPost, server.URL+"/api/v1/auth/login", login, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair model.TokenPair
	decodeData(t, resp, &pair)

	var session model.SessionData
	resp = doAuthJSONRequest(t, http.MethodPost, server.URL+"/api/v1/sessions/", nil, pair.AccessToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeData(t, resp, &session)
	base := server.URL + "/api/v1/sessions/" + session.SessionID

	selectBody, _ := json.Marshal(map[string]any{"records": []any{accountPayload("u1")}})
	resp = doAuthJSONRequest(t, http.MethodPost, base+"/selection", selectBody, pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doAuthJSONRequest(t, http.MethodPost, base+"/operations/activate_accounts/start", nil, pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Audit listing is admin-only.
	resp = doAuthJSONRequest(t, http.MethodGet, server.URL+"/api/v1/audit", nil, pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestModerationFlow_UnknownOperationKind(t *testing.T) {
	t.Parallel()

	server, token := newConsoleServer(t, executor.Registry{})

	var session model.SessionData
	resp := doAuthJSONRequest(t, http.MethodPost, server.URL+"/api/v1/sessions/", nil, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeData(t, resp, &session)

	resp = doAuthJSONRequest(t, http.MethodPost,
		server.URL+"/api/v1/sessions/"+session.SessionID+"/operations/delete_everything/start", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
