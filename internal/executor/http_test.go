package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mod-console/internal/model"
)

func TestHTTPExecutor_DecodesCamelCaseResponse(t *testing.T) {
	t.Parallel()

	var received bulkRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"processedCount": 2,
			"failedCount": 1,
			"errors": [{"userId": "u3", "error": "account locked"}]
		}`))
	}))
	t.Cleanup(server.Close)

	exec := NewHTTPExecutor(server.Client(), server.URL)
	result, err := exec.Execute(context.Background(), []string{"u1", "u2", "u3"}, "  spam wave  ")
	require.NoError(t, err)

	assert.Equal(t, []string{"u1", "u2", "u3"}, received.IDs)
	assert.Equal(t, "spam wave", received.Reason)

	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "u3", result.Errors[0].ItemID())
	assert.Equal(t, "account locked", result.Errors[0].Error)
}

func TestHTTPExecutor_Non2xxIsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	t.Cleanup(server.Close)

	exec := NewHTTPExecutor(server.Client(), server.URL)
	_, err := exec.Execute(context.Background(), []string{"v1"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestHTTPExecutor_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	exec := NewHTTPExecutor(server.Client(), server.URL)
	_, err := exec.Execute(ctx, []string{"v1"}, "")
	require.Error(t, err)
}

func TestItemFailure_ItemID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "u1", ItemFailure{UserID: "u1"}.ItemID())
	assert.Equal(t, "v1", ItemFailure{VideoID: "v1"}.ItemID())
	assert.Equal(t, "e1", ItemFailure{EventID: "e1"}.ItemID())
	assert.Empty(t, ItemFailure{}.ItemID())
}

func TestNewHTTPRegistry_CoversEveryVariant(t *testing.T) {
	t.Parallel()

	registry := NewHTTPRegistry("http://backend/", "/accounts/bulk", "/media/bulk", "/events/bulk", time.Second)
	for _, variant := range model.VariantOrder {
		assert.Contains(t, registry, variant)
	}
}
