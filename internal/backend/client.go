// Package backend is the HTTP client for the knowledge-assistant quiz API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/kbquiz/internal/quiz"
)

const (
	DefaultTimeout = 15 * time.Second

	// maxBody caps how much of a response is read.
	maxBody = 4 << 20
)

// Client implements quiz.Fetcher and quiz.Submitter against the API.
type Client struct {
	base      *url.URL
	token     string
	http      *http.Client
	logger    *slog.Logger
	userAgent string
	fetches   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: DefaultTimeout},
		logger:    slog.Default(),
		userAgent: "kbquiz",
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Fetch loads a quiz. Concurrent fetches of the same quiz share one
// request; a caller whose context ends stops waiting without cancelling
// the others.
func (c *Client) Fetch(ctx context.Context, quizID string) (*quiz.Quiz, error) {
	ch := c.fetches.DoChan(quizID, func() (any, error) {
		// Detached so one impatient caller cannot fail the shared request.
		return c.fetch(context.WithoutCancel(ctx), quizID)
	})
	select {
	case <-ctx.Done():
		return nil, &quiz.APIError{Op: "fetch", Kind: quiz.ErrUnknown, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*quiz.Quiz), nil
	}
}

func (c *Client) fetch(ctx context.Context, quizID string) (*quiz.Quiz, error) {
	body, err := c.do(ctx, "fetch", http.MethodGet, c.endpoint(quizID), nil)
	if err != nil {
		return nil, err
	}
	q, err := quiz.Decode(body)
	if err != nil {
		return nil, &quiz.APIError{Op: "fetch", Kind: quiz.ErrUnknown, Err: err}
	}
	if q.ID == "" {
		q.ID = quizID
	}
	if err := quiz.Validate(q); err != nil {
		return nil, &quiz.APIError{Op: "fetch", Kind: quiz.ErrUnknown, Err: err}
	}
	return q, nil
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

// Submit sends a complete answer set for scoring.
func (c *Client) Submit(ctx context.Context, quizID string, answers map[int]string) (*quiz.Result, error) {
	req := submitRequest{Answers: make(map[string]string, len(answers))}
	for ordinal, label := range answers {
		req.Answers[strconv.Itoa(ordinal)] = label
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &quiz.APIError{Op: "submit", Kind: quiz.ErrUnknown, Err: err}
	}

	body, err := c.do(ctx, "submit", http.MethodPost, c.endpoint(quizID, "submit"), payload)
	if err != nil {
		return nil, err
	}
	var res quiz.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &quiz.APIError{Op: "submit", Kind: quiz.ErrUnknown, Err: fmt.Errorf("decode result: %w", err)}
	}
	return &res, nil
}

func (c *Client) endpoint(quizID string, rest ...string) string {
	parts := append([]string{"api", "quizzes", url.PathEscape(quizID)}, rest...)
	return c.base.String() + "/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload []byte) ([]byte, error) {
	if err := CheckToken(c.token, time.Now()); err != nil {
		return nil, err
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &quiz.APIError{Op: op, Kind: quiz.ErrUnknown, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("quiz api request failed", "op", op, "request_id", reqID, "error", err)
		return nil, &quiz.APIError{Op: op, Kind: quiz.ErrUnknown, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	c.logger.Debug("quiz api request",
		"op", op,
		"method", method,
		"url", endpoint,
		"status", resp.StatusCode,
		"request_id", reqID,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		return nil, &quiz.APIError{Op: op, Status: resp.StatusCode, Kind: quiz.ErrUnknown, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &quiz.APIError{
			Op:     op,
			Status: resp.StatusCode,
			Kind:   kindForStatus(op, resp.StatusCode),
			Err:    serverMessage(data),
		}
	}
	return data, nil
}

func kindForStatus(op string, status int) error {
	switch status {
	case http.StatusUnauthorized:
		return quiz.ErrUnauthorized
	case http.StatusForbidden:
		return quiz.ErrForbidden
	case http.StatusNotFound:
		return quiz.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if op == "submit" {
			return quiz.ErrInvalidAnswers
		}
	}
	return quiz.ErrUnknown
}

// serverMessage extracts {"error": "..."} or {"message": "..."} from an
// error body.
func serverMessage(data []byte) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil {
		return nil
	}
	switch {
	case body.Error != "":
		return errors.New(body.Error)
	case body.Message != "":
		return errors.New(body.Message)
	}
	return nil
}
