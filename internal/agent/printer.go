package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxErrorBody = 512

// Printer hands jobs to the local print service, which owns the OS print
// spooler. The job is posted verbatim as JSON.
type Printer struct {
	httpClient *http.Client
	serviceURL string
}

func NewPrinter(serviceURL string) *Printer {
	return &Printer{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		serviceURL: serviceURL,
	}
}

func (p *Printer) Print(ctx context.Context, job []byte) error {
	slog.Info("Forwarding job to local print service", "url", p.serviceURL, "bytes", len(job))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL, bytes.NewReader(job))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	slog.Info("Received response from local print service", "status_code", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("print service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
