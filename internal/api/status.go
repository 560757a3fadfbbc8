package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sgzrov/Voyant/internal/errs"
)

// TaskState is the normalized trichotomy the engine acts on. The backend's
// raw ingest states (PENDING/STARTED/RETRY/SUCCESS/FAILURE/TIMEOUT) collapse
// into it.
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskSuccess TaskState = "success"
	TaskFailure TaskState = "failure"
)

// TaskStatus polls /health/task-status/{id} for one ingest task.
func TaskStatus(ctx context.Context, httpClient *http.Client, baseURL, taskID string) (TaskState, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u := fmt.Sprintf("%s/health/task-status/%s", baseURL, url.PathEscape(taskID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", errs.NewNetworkError("task status", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errs.NewHTTPError(resp.StatusCode, string(b), "task status")
	}

	var payload struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("task status: decode response: %w", err)
	}
	return normalizeState(payload.State), nil
}

func normalizeState(raw string) TaskState {
	switch strings.ToUpper(raw) {
	case "SUCCESS", "COMPLETED":
		return TaskSuccess
	case "FAILURE", "FAILED", "REVOKED", "TIMEOUT":
		return TaskFailure
	default:
		// PENDING, STARTED, RETRY, PROCESSING and anything novel keep polling.
		return TaskPending
	}
}

// SeedChunkStatus is one chunk's server-side view.
type SeedChunkStatus struct {
	ChunkIndex int    `json:"chunk_index"`
	ChunkTotal int    `json:"chunk_total"`
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
}

// SeedStatusResponse summarizes a seed batch as the backend sees it.
type SeedStatusResponse struct {
	BatchID string `json:"batch_id"`
	Summary struct {
		Total      int `json:"total"`
		Completed  int `json:"completed"`
		Failed     int `json:"failed"`
		Processing int `json:"processing"`
	} `json:"summary"`
	Chunks []SeedChunkStatus `json:"chunks"`
}

// SeedStatus fetches /health/seed-status for batchID ("" means the backend's
// latest batch for this user).
func SeedStatus(ctx context.Context, httpClient *http.Client, baseURL, batchID string) (*SeedStatusResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/health/seed-status", baseURL)
	if batchID != "" {
		u += "?batch_id=" + url.QueryEscape(batchID)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.NewNetworkError("seed status", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errs.NewHTTPError(resp.StatusCode, string(b), "seed status")
	}

	var sr SeedStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("seed status: decode response: %w", err)
	}
	return &sr, nil
}
