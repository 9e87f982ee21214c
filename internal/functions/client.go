// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package functions calls the hosted plan, edit, compile and lint functions.
// Each function gets its own circuit breaker; transient failures (network
// errors, 429 and 5xx) are retried with exponential backoff.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"mailsmithery/internal/metrics"
	"mailsmithery/internal/models"
)

// Function names as deployed on the functions host.
const (
	FuncPlan    = "plan"
	FuncEdit    = "edit"
	FuncCompile = "compile"
	FuncLint    = "lint"
)

// ErrCollaborator is wrapped by every *Error so callers can map any
// collaborator failure without knowing which function failed.
var ErrCollaborator = errors.New("collaborator failed")

// Error is a failed function call. Message is the collaborator's own text
// and is safe to show to the user.
type Error struct {
	Function string
	Code     string
	Message  string
	Status   int // HTTP status; 0 when the request never got an answer
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s function: %s (%s)", e.Function, e.Message, e.Code)
	}
	return fmt.Sprintf("%s function: %s", e.Function, e.Message)
}

func (e *Error) Unwrap() error { return ErrCollaborator }

// Transient reports whether the same call may succeed later.
func (e *Error) Transient() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func isTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Transient()
}

// envelope is the response body of every function.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to <baseURL>/<function>.
type Client struct {
	baseURL    string
	key        string
	http       *http.Client
	maxRetries uint64
	initial    time.Duration

	tripAfter uint32
	cooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithMaxRetries bounds the number of retries after the first attempt.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the first retry interval.
func WithBackoff(initial time.Duration) Option {
	return func(c *Client) { c.initial = initial }
}

// WithBreaker sets how many consecutive transient failures open a
// function's breaker and how long it stays open.
func WithBreaker(tripAfter uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		c.tripAfter = tripAfter
		c.cooldown = cooldown
	}
}

// New creates a client for the functions host at baseURL.
func New(baseURL, key string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		key:        key,
		http:       &http.Client{Timeout: 90 * time.Second},
		maxRetries: 2,
		initial:    500 * time.Millisecond,
		tripAfter:  5,
		cooldown:   30 * time.Second,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) breaker(name string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[name]; ok {
		return cb
	}
	tripAfter := c.tripAfter
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     c.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("function breaker state changed", "function", name, "from", from.String(), "to", to.String())
		},
		// Caller mistakes must not open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
	})
	c.breakers[name] = cb
	return cb
}

// Call invokes function name with in as the JSON body and decodes the
// response's data member into out.
func (c *Client) Call(ctx context.Context, name string, in, out any) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveCollaborator("function:"+name, started, err) }()

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", name, err)
	}

	cb := c.breaker(name)
	op := func() error {
		_, callErr := cb.Execute(func() (interface{}, error) {
			return nil, c.do(ctx, name, payload, out)
		})
		switch {
		case callErr == nil:
			return nil
		case errors.Is(callErr, gobreaker.ErrOpenState), errors.Is(callErr, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(&Error{
				Function: name,
				Code:     "unavailable",
				Message:  "service temporarily unavailable, try again shortly",
				Status:   http.StatusServiceUnavailable,
			})
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case !isTransient(callErr):
			return backoff.Permanent(callErr)
		}
		slog.Debug("function call failed, retrying", "function", name, "error", callErr)
		return callErr
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxElapsedTime = 0 // bounded by retries and ctx
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx))
}

func (c *Client) do(ctx context.Context, name string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("apikey", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Function: name, Code: "network", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Function: name, Code: "network", Message: err.Error()}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fe := &Error{Function: name, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && env.Error != nil {
			fe.Code, fe.Message = env.Error.Code, env.Error.Message
		} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
			fe.Message = text
		}
		return fe
	}
	if decodeErr != nil {
		return &Error{Function: name, Code: "bad_response", Message: "malformed response", Status: resp.StatusCode}
	}
	if env.Error != nil {
		return &Error{Function: name, Code: env.Error.Code, Message: env.Error.Message, Status: http.StatusUnprocessableEntity}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &Error{Function: name, Code: "bad_response", Message: "empty response", Status: resp.StatusCode}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Function: name, Code: "bad_response", Message: "unexpected response shape", Status: resp.StatusCode}
	}
	return nil
}

// Plan asks the hosted planner for a new template plan.
func (c *Client) Plan(ctx context.Context, req models.PlanRequest) (*models.TemplatePlan, error) {
	var out models.TemplatePlan
	if err := c.Call(ctx, FuncPlan, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Edit asks the hosted editor to apply ops and an optional instruction.
func (c *Client) Edit(ctx context.Context, req models.EditRequest) (*models.TemplateEdit, error) {
	var out models.TemplateEdit
	if err := c.Call(ctx, FuncEdit, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compile turns MJML into email HTML.
func (c *Client) Compile(ctx context.Context, mjml string) (*models.CompileResult, error) {
	var out models.CompileResult
	if err := c.Call(ctx, FuncCompile, map[string]string{"mjml": mjml}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lint analyses a compiled template.
func (c *Client) Lint(ctx context.Context, req models.LintRequest) (*models.LintResult, error) {
	var out models.LintResult
	if err := c.Call(ctx, FuncLint, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
