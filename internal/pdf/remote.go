package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"jsoncv/pkg/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryAfter  = 10 * time.Second
	DefaultCallDelay   = 2 * time.Second
)

type remoteRequest struct {
	HTML    string        `json:"html"`
	Options remoteOptions `json:"options"`
}

type remoteOptions struct {
	Format          string `json:"format"`
	PrintBackground bool   `json:"printBackground"`
}

// RemoteRenderer posts pages to a PDF rendering API. Rate limited calls are
// retried after the server supplied Retry-After, up to MaxAttempts.
type RemoteRenderer struct {
	URL    string
	APIKey string
	Client *http.Client

	MaxAttempts int
	// RetryAfter is used when a 429 response has no usable Retry-After.
	RetryAfter time.Duration
	// CallDelay is the minimum time between two calls.
	CallDelay time.Duration

	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	lastCall time.Time
}

func NewRemoteRenderer(url, apiKey string) *RemoteRenderer {
	return &RemoteRenderer{
		URL:         url,
		APIKey:      apiKey,
		Client:      &http.Client{Timeout: 60 * time.Second},
		MaxAttempts: DefaultMaxAttempts,
		RetryAfter:  DefaultRetryAfter,
		CallDelay:   DefaultCallDelay,
		sleep:       sleepContext,
	}
}

func (r *RemoteRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	body, err := json.Marshal(remoteRequest{
		HTML:    string(html),
		Options: remoteOptions{Format: "A4", PrintBackground: true},
	})
	if err != nil {
		return nil, err
	}

	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := r.waitTurn(ctx); err != nil {
			return nil, err
		}
		pdf, wait, err := r.call(ctx, body)
		if err != nil {
			return nil, err
		}
		if pdf != nil {
			return pdf, nil
		}
		if attempt == attempts {
			break
		}
		logger.Sugar.Warnf("PDF service rate limited, retrying in %s (attempt %d/%d)", wait, attempt, attempts)
		if err := r.sleepFor(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrRateLimited, attempts)
}

// call performs one request. A nil result with a nil error means the call was
// rate limited and should be retried after wait.
func (r *RemoteRenderer) call(ctx context.Context, body []byte) (pdf []byte, wait time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("pdf request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, r.retryAfter(resp.Header.Get("Retry-After")), nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("pdf service returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	pdf, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read pdf: %w", err)
	}
	return pdf, 0, nil
}

func (r *RemoteRenderer) retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return r.RetryAfter
}

// waitTurn keeps CallDelay between consecutive calls.
func (r *RemoteRenderer) waitTurn(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.lastCall.IsZero() && r.CallDelay > 0 {
		if d := r.CallDelay - time.Since(r.lastCall); d > 0 {
			if err := r.sleepFor(ctx, d); err != nil {
				return err
			}
		}
	}
	r.lastCall = time.Now()
	return nil
}

func (r *RemoteRenderer) sleepFor(ctx context.Context, d time.Duration) error {
	if r.sleep == nil {
		return sleepContext(ctx, d)
	}
	return r.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
