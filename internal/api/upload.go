// Package api holds the backend wire calls. Functions take the HTTP client
// and base URL explicitly; authentication rides on the engine's transport
// wrapper, never here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/sgzrov/Voyant/internal/errs"
	"github.com/sgzrov/Voyant/internal/types"
)

// UploadAck is the backend's response to an upload. Status "completed" means
// the content hash was already absorbed; the client treats it as success.
type UploadAck struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// UploadCSV posts one serialized batch to /health/upload-csv as a multipart
// file upload. idempotencyKey must be the sha256 hex of payload; retried
// calls with the same payload are absorbed server-side.
func UploadCSV(ctx context.Context, httpClient *http.Client, baseURL string, payload []byte, idempotencyKey string, batch types.UploadBatch) (*UploadAck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "health.csv")
	if err != nil {
		return nil, fmt.Errorf("upload csv: build form: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("upload csv: write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload csv: close form: %w", err)
	}

	url := fmt.Sprintf("%s/health/upload-csv", baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
	httpReq.Header.Set("X-Upload-Mode", string(batch.Mode))
	if batch.Mode == types.ModeSeed {
		httpReq.Header.Set("X-Seed-Batch-Id", batch.BatchID)
		httpReq.Header.Set("X-Seed-Chunk-Index", strconv.Itoa(batch.ChunkIndex))
		httpReq.Header.Set("X-Seed-Chunk-Total", strconv.Itoa(batch.ChunkTotal))
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.NewNetworkError("upload csv", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errs.NewHTTPError(resp.StatusCode, string(b), "upload csv")
	}

	var ack UploadAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("upload csv: decode response: %w", err)
	}
	if ack.TaskID == "" {
		return nil, errs.Permanent(fmt.Errorf("upload csv: response missing task_id"))
	}
	return &ack, nil
}
