package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/park285/fairchess/pkg/analysisdto"
	"github.com/valyala/fasthttp"
)

// RemoteBackend asks a surrounding analysis service for evaluations over
// HTTP. Any network failure or non-2xx status is reported as ErrUnavailable
// so the chain falls through to the next strategy.
type RemoteBackend struct {
	baseURL  string
	http     *fasthttp.Client
	timeout  time.Duration
	retryMax int
}

type RemoteOption func(*RemoteBackend)

func WithRemoteTimeout(d time.Duration) RemoteOption {
	return func(r *RemoteBackend) { r.timeout = d }
}

func WithRemoteRetry(max int) RemoteOption {
	return func(r *RemoteBackend) { r.retryMax = max }
}

func NewRemoteBackend(baseURL string, opts ...RemoteOption) *RemoteBackend {
	r := &RemoteBackend{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		timeout:  10 * time.Second,
		retryMax: 2,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RemoteBackend) Name() string { return "remote" }

func (r *RemoteBackend) Analyze(ctx context.Context, req Request) (Result, error) {
	payload := analysisdto.AnalyzeRequest{
		FEN:     req.FEN,
		Depth:   req.Depth,
		MultiPV: req.MultiPV,
	}
	var resp analysisdto.AnalyzeResponse
	if err := r.postJSON(ctx, "/analyze", payload, &resp); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return Result{
		ScoreCP:  resp.Score,
		MateIn:   resp.Mate,
		BestMove: resp.BestMove,
		Lines:    resp.Lines,
		Depth:    resp.Depth,
		Backend:  r.Name(),
	}, nil
}

func (r *RemoteBackend) Close() error { return nil }

func (r *RemoteBackend) postJSON(ctx context.Context, path string, in, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(r.baseURL + path)
	req.Header.SetContentType("application/json")

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	attempts := r.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		deadline := time.Now().Add(r.timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		err := r.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < attempts {
				if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
					return lastErr
				}
				continue
			}
			return lastErr
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("analysis api status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if attempt < attempts && shouldRetryStatus(status) {
				if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
					return lastErr
				}
				continue
			}
			return lastErr
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func shouldRetryStatus(status int) bool {
	return status >= 500 || status == fasthttp.StatusTooManyRequests
}

func backoffDuration(attempt int) time.Duration {
	d := time.Duration(attempt) * 200 * time.Millisecond
	if d > time.Second {
		d = time.Second
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
