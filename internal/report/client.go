// Package report sends quiz completion reports to the learning backend.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/event"
	"github.com/victornm/learn/internal/telemetry"
)

const (
	completePath   = "/api/learn/complete"
	defaultTimeout = 10 * time.Second
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	url  string
	http *http.Client
}

func NewClient(c Config) *Client {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}

	return &Client{
		url:  strings.TrimRight(c.BaseURL, "/") + completePath,
		http: c.HTTPClient,
	}
}

// Subscribe registers the client as the quiz completed handler of eb. Delivery failures
// are logged and never retried.
func (c *Client) Subscribe(eb *event.Bus) {
	eb.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return c.Report(ctx, e.(domain.EventQuizCompleted).Report)
	})
}

// Report posts r once. Any 2xx response is a success and its body is ignored.
func (c *Client) Report(ctx context.Context, r domain.CompletionReport) error {
	if r.Answers == nil {
		r.Answers = map[string]int{}
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: marshal completion report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("report: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.failed(ctx, r, 0, err)
		return fmt.Errorf("report: post %s: %w", c.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("report: post %s: unexpected status %d", c.url, resp.StatusCode)
		c.failed(ctx, r, resp.StatusCode, err)
		return err
	}

	telemetry.CompletionReports.WithLabelValues(telemetry.ResultSuccess).Inc()
	slog.InfoContext(ctx, "report: completion report sent",
		"lesson_id", r.LessonID,
		"score", r.Score,
	)

	return nil
}

func (c *Client) failed(ctx context.Context, r domain.CompletionReport, status int, err error) {
	telemetry.CompletionReports.WithLabelValues(telemetry.ResultFailure).Inc()
	slog.ErrorContext(ctx, "report: completion report failed",
		"lesson_id", r.LessonID,
		"url", c.url,
		"status", status,
		"error", err,
	)
}
