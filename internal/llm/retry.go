package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"docuchat/internal/log"
)

// StatusError is a non-2xx response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	// RetryAfter is the server-requested wait, zero if none was sent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s: %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Retryable reports whether a response status is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// ParseRetryAfter reads a Retry-After header given in seconds.
func ParseRetryAfter(h http.Header) time.Duration {
	ra := h.Get("Retry-After")
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// RetryDelay is exponential backoff from 200ms, capped at 5s.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return 5 * time.Second
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// Policy controls how often an operation is retried.
type Policy struct {
	MaxRetries int
	// Delay overrides RetryDelay. Tests use it to avoid sleeping.
	Delay func(attempt int) time.Duration
}

// Do runs op until it succeeds, fails permanently, or the retries run out.
// Rate limits, server errors and transport errors are retried.
func (p Policy) Do(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		wait, ok := p.backoff(err, attempt)
		if !ok || attempt >= p.MaxRetries {
			return err
		}
		log.Debug("retrying provider call", "attempt", attempt+1, "wait", wait.String(), "error", err.Error())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (p Policy) backoff(err error, attempt int) (time.Duration, bool) {
	delay := RetryDelay
	if p.Delay != nil {
		delay = p.Delay
	}
	var se *StatusError
	if errors.As(err, &se) {
		if !Retryable(se.StatusCode) {
			return 0, false
		}
		if se.RetryAfter > 0 {
			return se.RetryAfter, true
		}
		return delay(attempt), true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return delay(attempt), true
	}
	return 0, false
}
