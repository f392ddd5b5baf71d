// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package client

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

const (
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"
	contentTypeJSON   = "application/json"
	sdkUserAgent      = "changas-go/" + sdkVersion
	sdkVersion        = "0.1.0"

	refreshPath = "/auth/refresh"
)

// doRequest performs an HTTP request with the 401 recovery policy applied.
//
// # Interception
//
// A 401 on any path except the refresh endpoint triggers exactly one silent
// refresh; if it succeeds the original request is replayed once. A failed
// refresh, or a replay that 401s again, fires the session-expired hook and
// surfaces the 401 to the caller. The replay itself is never intercepted, so
// a single request can cause at most one refresh call.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	statusCode, respBody, err := c.send(ctx, method, path, bodyBytes)
	if err != nil {
		return err
	}

	// ── 401 Recovery ──────────────────────────────────────────────────────
	if statusCode == http.StatusUnauthorized && path != refreshPath {
		if refreshErr := c.silentRefresh(ctx); refreshErr != nil {
			c.logger.Debug("silent_refresh_failed", slog.Any("error", refreshErr))
			c.sessionExpired()
			return parseError(statusCode, respBody)
		}

		// Replay the original request once. No further interception.
		statusCode, respBody, err = c.send(ctx, method, path, bodyBytes)
		if err != nil {
			return err
		}
		if statusCode == http.StatusUnauthorized {
			c.sessionExpired()
		}
	}

	if statusCode >= 400 {
		return parseError(statusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// send executes a single HTTP round trip and drains the body.
func (c *Client) send(ctx context.Context, method, path string, bodyBytes []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set(headerUserAgent, sdkUserAgent)
	if bodyBytes != nil {
		request.Header.Set(headerContentType, contentTypeJSON)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return response.StatusCode, respBody, nil
}

// silentRefresh calls the refresh endpoint at most once per 401 episode.
//
// Concurrent callers serialize on the mutex; a caller that finds a refresh
// completed within the cooldown window reuses it instead of issuing another.
func (c *Client) silentRefresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if time.Since(c.lastRefresh) < refreshCooldown {
		return nil
	}

	statusCode, respBody, err := c.send(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(statusCode, respBody)
	}

	c.lastRefresh = time.Now()
	c.logger.Debug("session_refreshed")
	return nil
}

// sessionExpired fires the session-expired hook, if one is registered.
// Idempotence under concurrent triggers is the registered handler's duty.
func (c *Client) sessionExpired() {
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, http.MethodPost, path, body, result)
}

// patch performs a PATCH request.
func (c *Client) patch(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, http.MethodPatch, path, body, result)
}
