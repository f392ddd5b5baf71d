// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

/*
Package client is the Go SDK for the Changas marketplace API.

It provides a cookie-authenticated HTTP client with automatic session
recovery: any request that is rejected with 401 triggers exactly one silent
call to the refresh endpoint, after which the original request is replayed
once. When recovery fails, a session-expired hook fires so the embedding
application can tear its session down.

# Usage

	api, err := client.New()
	if err != nil { ... }

	result, err := api.Login(ctx, client.Credentials{Email: "a@b.com", Password: "x"})

Credentials are never handled by callers directly: the server sets HttpOnly
cookies and the client's cookie jar forwards them on every request.
*/
package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultBaseURL is the local development API endpoint, used when
	// CHANGAS_API_URL is not set.
	DefaultBaseURL = "http://localhost:8080/api/v1"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second

	// refreshCooldown treats a refresh that completed this recently as
	// fresh enough, so concurrent 401s don't each hit the refresh endpoint.
	refreshCooldown = 5 * time.Second
)

type envConfig struct {
	APIURL string `env:"CHANGAS_API_URL"`
}

// Client is the Changas API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	// onSessionExpired fires once per unrecoverable 401 episode, after the
	// silent refresh (or its replay) has failed.
	onSessionExpired func()

	// refreshMu serializes silent refreshes so concurrent 401s share one.
	refreshMu   sync.Mutex
	lastRefresh time.Time
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL, overriding the environment.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
//
// The client must carry a cookie jar, otherwise the session cookies the
// server sets are dropped and every authenticated call fails.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets a structured logger for transport diagnostics.
// The client is silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSessionExpiredHandler registers the hook invoked when a 401 could not
// be recovered by a silent refresh. Typically wired by the session controller.
func WithSessionExpiredHandler(handler func()) Option {
	return func(c *Client) {
		c.onSessionExpired = handler
	}
}

// New creates a Changas API client.
//
// The base URL is resolved in order: WithBaseURL option, CHANGAS_API_URL
// environment variable, local development fallback.
func New(options ...Option) (*Client, error) {
	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("client: failed to parse environment: %w", err)
	}

	baseURL := DefaultBaseURL
	if cfg.APIURL != "" {
		baseURL = strings.TrimRight(cfg.APIURL, "/")
	}

	c := &Client{
		baseURL: baseURL,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, option := range options {
		option(c)
	}

	if c.httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: failed to create cookie jar: %w", err)
		}
		c.httpClient = &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		}
	}
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}

	return c, nil
}

// SetSessionExpiredHandler replaces the session-expired hook after construction.
//
// The session controller uses this to bind itself to a client it received
// via dependency injection.
func (c *Client) SetSessionExpiredHandler(handler func()) {
	c.onSessionExpired = handler
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
