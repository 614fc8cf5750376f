package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPRestarter asks an infrastructure API to restart a process with
// POST {"process": label} and a bearer token.
type HTTPRestarter struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPRestarter creates an HTTPRestarter. A nil client uses a 10 second timeout.
func NewHTTPRestarter(url, token string, client *http.Client) *HTTPRestarter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRestarter{url: url, token: token, client: client}
}

// Restart implements Restarter.
func (r *HTTPRestarter) Restart(ctx context.Context, process string) error {
	body, err := json.Marshal(map[string]string{"process": process})
	if err != nil {
		return fmt.Errorf("marshal restart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build restart request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("restart %s: %w", process, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("restart %s: unexpected status %d: %s", process, resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// NoopRestarter only logs restart requests. It is used when no restart
// endpoint is configured.
type NoopRestarter struct {
	Logger *slog.Logger
}

// Restart implements Restarter.
func (r NoopRestarter) Restart(_ context.Context, process string) error {
	r.Logger.Warn("worker restart requested but no restart endpoint is configured",
		slog.String("process", process))
	return nil
}
