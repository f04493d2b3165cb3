package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-mod-console/internal/model"
)

type bulkRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason,omitempty"`
}

// HTTPExecutor dispatches a bulk action to one backend endpoint.
type HTTPExecutor struct {
	client   *http.Client
	endpoint string
}

func NewHTTPExecutor(client *http.Client, endpoint string) *HTTPExecutor {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPExecutor{client: client, endpoint: endpoint}
}

func (e *HTTPExecutor) Execute(ctx context.Context, ids []string, reason string) (Result, error) {
	body, err := json.Marshal(bulkRequest{IDs: ids, Reason: strings.TrimSpace(reason)})
	if err != nil {
		return Result{}, fmt.Errorf("encode bulk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("bulk action call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("bulk action returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode bulk action response: %w", err)
	}

	return result, nil
}

// NewHTTPRegistry wires one HTTP executor per record variant against the
// configured backend base URL.
func NewHTTPRegistry(baseURL string, accountsPath string, mediaPath string, eventsPath string, timeout time.Duration) Registry {
	client := &http.Client{Timeout: timeout}
	base := strings.TrimRight(baseURL, "/")

	return Registry{
		model.RecordKindAccount: NewHTTPExecutor(client, base+accountsPath),
		model.RecordKindMedia:   NewHTTPExecutor(client, base+mediaPath),
		model.RecordKindEvent:   NewHTTPExecutor(client, base+eventsPath),
	}
}
