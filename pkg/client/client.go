// Package client provides the HTTP client for the explorer gateway: bearer
// auth from an explicit session, JSON in and out, retried reads and typed
// errors carrying the server's message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/explorer/pkg/protocol"
	"github.com/fruitsalade/explorer/pkg/retry"
	"github.com/fruitsalade/explorer/pkg/session"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("gateway unreachable")

// APIError is returned for non-2xx responses.
type APIError struct {
	Status   int
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Endpoint, e.Message, e.Status)
}

// AsAPIError checks if an error is an APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the gateway.
func IsNotFound(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Status == http.StatusNotFound
}

// ObserveFunc receives the outcome of every request. Status is 0 when no
// response was received.
type ObserveFunc func(endpoint string, status int, duration time.Duration)

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	Session     *session.Session
	Transport   http.RoundTripper
	Logger      *zap.Logger
	Observe     ObserveFunc
}

// Client talks to the gateway.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	logger      *zap.Logger
	observe     ObserveFunc

	mu       sync.RWMutex
	online   bool
	lastPing time.Time
	session  *session.Session
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Transport == nil {
		cfg.Transport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		retryConfig: cfg.RetryConfig,
		logger:      cfg.Logger,
		observe:     cfg.Observe,
		online:      true,
		session:     cfg.Session,
	}
	if c.retryConfig.OnRetry == nil {
		c.retryConfig.OnRetry = func(attempt int, wait time.Duration, err error) {
			c.logger.Debug("retrying gateway read",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
	}
	return c
}

// SetSession replaces the session whose token authenticates requests.
func (c *Client) SetSession(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Session returns the current session, possibly nil.
func (c *Client) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if token := c.session.BearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// IsOnline returns true if the gateway answered the last request.
func (c *Client) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.online != online {
		if online {
			c.logger.Info("gateway is back online")
		} else {
			c.logger.Error("gateway is offline")
		}
	}
	c.online = online
	c.lastPing = time.Now()
}

// Ping checks if the gateway is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return unmark(c.do(ctx, http.MethodGet, protocol.PathHealth, nil, nil, nil))
}

// GetJSON issues a GET and decodes the JSON response into out. Transport
// failures and transient statuses are retried.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, err := retry.Do(ctx, c.retryConfig, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodGet, path, query, nil, out)
	})
	return err
}

// PostJSON sends in as JSON and decodes the response into out, which may be
// nil. Mutations are never retried.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return unmark(c.do(ctx, http.MethodPost, path, nil, body, out))
}

// unmark strips the retry marker from errors of single-attempt calls.
func unmark(err error) error {
	if retry.IsRetryable(err) {
		return errors.Unwrap(err)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyAuth(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(path, 0, start)
		c.setOnline(false)
		return retry.Retryable(fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer resp.Body.Close()
	c.record(path, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(path, resp)
		if retry.RetryableStatus(resp.StatusCode) {
			c.setOnline(false)
			return retry.Retryable(apiErr)
		}
		c.setOnline(true)
		return apiErr
	}

	c.setOnline(true)
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) record(path string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(path, status, time.Since(start))
	}
}

func decodeError(path string, resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Endpoint: path}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope protocol.ErrorResponse
	if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
		apiErr.Message = envelope.Message
	} else if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") {
		apiErr.Message = text
	} else {
		apiErr.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return apiErr
}
