// Package ingest talks to the bot's HTTP API: batch snapshot fetching,
// mutating calls, and the optional change feed.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/whalewatch/dashboard/internal/store"
	"go.uber.org/zap"
)

// API routes served by the bot.
const (
	PathWhales        = "/api/whales"
	PathHistory       = "/api/history"
	PathConfig        = "/api/config"
	PathOpportunities = "/api/opportunities"
	PathWhitelist     = "/api/whitelist"
	PathSignals       = "/api/signals"
	PathConfigSave    = "/api/config/save"
	PathToggleMode    = "/api/config/toggle-mode"
	PathSignalConfig  = "/api/config/signals"
)

// RequestIDHeader carries a per-mutation id so bot logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response is kept in APIError.
const maxErrorBody = 512

// APIError is returned for any non-2xx answer.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client is a thin JSON client for the bot API.
type Client struct {
	logger     *zap.Logger
	baseURL    string
	httpClient *http.Client
	requestID  func() string
}

// NewClient creates a client. A zero timeout leaves requests bounded only by
// the caller's context and the transport.
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger:     logger,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		requestID:  func() string { return uuid.NewString() },
	}
}

// GetRaw issues a GET and returns the body after checking it is valid JSON.
func (c *Client) GetRaw(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(http.MethodGet, path, resp.StatusCode, body)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: response is not valid JSON", path)
	}

	return json.RawMessage(body), nil
}

// Config reads the current bot configuration.
func (c *Client) Config(ctx context.Context) (store.BotConfig, error) {
	body, err := c.GetRaw(ctx, PathConfig)
	if err != nil {
		return store.BotConfig{}, err
	}

	var cfg store.BotConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return store.BotConfig{}, fmt.Errorf("decode config failed: %w", err)
	}
	return cfg, nil
}

// AddToWhitelist whitelists an address.
func (c *Client) AddToWhitelist(ctx context.Context, address string) error {
	return c.send(ctx, http.MethodPost, PathWhitelist, store.WhitelistRequest{Address: address}, nil)
}

// RemoveFromWhitelist removes an address; the bot accepts unknown addresses.
func (c *Client) RemoveFromWhitelist(ctx context.Context, address string) error {
	return c.send(ctx, http.MethodDelete, PathWhitelist, store.WhitelistRequest{Address: address}, nil)
}

// SaveSettings overwrites the whole settings object.
func (c *Client) SaveSettings(ctx context.Context, settings store.Settings) error {
	return c.send(ctx, http.MethodPost, PathConfigSave, settings, nil)
}

// ToggleMode asks the bot to switch to the given mode. The bot answers with a
// status document even on failure, so a non-2xx answer carrying one is
// returned as a result rather than an error.
func (c *Client) ToggleMode(ctx context.Context, paper bool) (store.ToggleModeResult, error) {
	var result store.ToggleModeResult
	err := c.send(ctx, http.MethodPost, PathToggleMode, store.ToggleModeRequest{PaperTrading: paper}, &result)
	if err == nil {
		return result, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		var failed store.ToggleModeResult
		if jsonErr := json.Unmarshal([]byte(apiErr.Body), &failed); jsonErr == nil && failed.Status != "" {
			return failed, nil
		}
	}
	return store.ToggleModeResult{}, err
}

// SaveSignalThresholds persists the signal filter thresholds.
func (c *Client) SaveSignalThresholds(ctx context.Context, thresholds store.SignalThresholds) error {
	return c.send(ctx, http.MethodPost, PathSignalConfig, thresholds, nil)
}

// send issues a mutating JSON request and decodes the answer into dest when
// dest is non-nil.
func (c *Client) send(ctx context.Context, method, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	requestID := c.requestID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	logger := c.logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("mutation_request_failed", zap.Error(err))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("mutation_rejected", zap.Int("status", resp.StatusCode))
		return newAPIError(method, path, resp.StatusCode, respBody)
	}
	logger.Debug("mutation_accepted", zap.Int("status", resp.StatusCode))

	if dest == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &APIError{Method: method, Path: path, StatusCode: status, Body: text}
}
