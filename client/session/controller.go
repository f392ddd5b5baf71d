// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/changas-app/changas/client"
)

// API is the slice of the HTTP client the controller needs.
//
// # Why an interface?
//
// Injecting the transport lets tests script responses without touching the
// network, and keeps the controller ignorant of base URLs and cookies.
type API interface {
	Login(ctx context.Context, credentials client.Credentials) (*client.LoginResult, error)
	Register(ctx context.Context, registration client.Registration) (*client.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*client.User, error)
}

// expiredBinder is implemented by transports that can report unrecoverable
// 401s back to the controller ([*client.Client] does).
type expiredBinder interface {
	SetSessionExpiredHandler(func())
}

// Default side-effect tuning.
const (
	// DefaultSettleDelay is how long a forced logout waits before firing the
	// redirect handler, letting in-flight state settle.
	DefaultSettleDelay = 100 * time.Millisecond

	// DefaultRetryAttempts bounds background verification retries.
	DefaultRetryAttempts = 3

	// DefaultRetryBaseDelay is the first retry delay; it doubles per attempt.
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// Controller orchestrates the session machine against the API and the
// credential store.
//
// # Concurrency
//
// A mutex guards the state snapshot. Every asynchronous completion captures
// the session epoch beforehand and is discarded if the epoch has moved on
// (a newer login or logout happened in the meantime), so late responses can
// never resurrect a dead session.
type Controller struct {
	api    API
	store  CredentialStore
	logger *slog.Logger

	mu    sync.Mutex
	state State
	epoch uint64

	// redirecting ensures the forced-logout side effect fires at most once
	// per expiry episode, even when several in-flight requests 401 together.
	redirecting atomic.Bool

	onForcedLogout func()
	settleDelay    time.Duration

	retryAttempts  int
	retryBaseDelay time.Duration
}

// ControllerOption configures a [Controller].
type ControllerOption func(*Controller)

// WithLogger sets a structured logger. Silent by default.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithForcedLogoutHandler registers the redirect side effect fired after a
// confirmed session invalidation (e.g. navigate to the login screen).
func WithForcedLogoutHandler(handler func()) ControllerOption {
	return func(c *Controller) { c.onForcedLogout = handler }
}

// WithSettleDelay overrides the delay before the forced-logout handler fires.
func WithSettleDelay(delay time.Duration) ControllerOption {
	return func(c *Controller) { c.settleDelay = delay }
}

// WithRetryPolicy overrides the bounded background-verification retry policy.
func WithRetryPolicy(attempts int, baseDelay time.Duration) ControllerOption {
	return func(c *Controller) {
		c.retryAttempts = attempts
		c.retryBaseDelay = baseDelay
	}
}

// NewController constructs a session [Controller].
//
// If the injected API can bind a session-expired handler, the controller
// registers its own forced logout so transport-level 401 recovery failures
// tear the session down through the same single path.
func NewController(api API, store CredentialStore, options ...ControllerOption) *Controller {
	controller := &Controller{
		api:            api,
		store:          store,
		logger:         slog.New(slog.DiscardHandler),
		state:          InitialState(),
		settleDelay:    DefaultSettleDelay,
		retryAttempts:  DefaultRetryAttempts,
		retryBaseDelay: DefaultRetryBaseDelay,
	}

	for _, option := range options {
		option(controller)
	}

	if binder, ok := api.(expiredBinder); ok {
		binder.SetSessionExpiredHandler(controller.ForceLogout)
	}

	return controller
}

// State returns the current immutable session snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// # Operations

// Initialize restores the session at application start.
//
// # Flow
//   - No marker: settle immediately as signed out.
//   - Marker with cached profile: restore optimistically (no loading flash),
//     then verify against the server in the background with bounded retries.
//     Only a 401 tears the optimistic session down.
//   - Marker without cached profile: verify synchronously; a failure clears
//     the marker and settles as signed out.
func (c *Controller) Initialize(ctx context.Context) {
	cached, marker, err := c.store.Load()
	if err != nil {
		c.logger.Warn("credential_store_read_failed", slog.Any("error", err))
		c.dispatch(InitComplete{})
		return
	}

	if !marker {
		c.dispatch(InitComplete{})
		return
	}

	if cached != nil {
		c.dispatch(RestoreFromStorage{User: cached})
		epoch := c.currentEpoch()
		go c.verifyInBackground(ctx, epoch)
		return
	}

	// Marker present but profile unreadable: nothing to render optimistically,
	// so verification blocks initialization.
	fresh, err := c.api.Me(ctx)
	if err != nil {
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Warn("credential_store_clear_failed", slog.Any("error", clearErr))
		}
		c.dispatch(InitComplete{})
		return
	}

	c.dispatch(RestoreFromStorage{User: fresh})
}

// Login authenticates with the given credentials.
//
// On failure both signals fire: the machine records the error AND the error
// is returned, so callers can render inline feedback while observers of the
// state see the same failure.
func (c *Controller) Login(ctx context.Context, credentials client.Credentials) error {
	epoch := c.bumpEpoch()
	c.dispatch(LoginStart{})

	result, err := c.api.Login(ctx, credentials)
	if err != nil {
		if client.IsMalformedResponse(err) {
			// Run the malformed payload through the reducer's own guard so
			// the recorded error matches the machine's semantics.
			c.dispatchIfCurrent(epoch, LoginSuccess{Payload: nil})
		} else {
			c.dispatchIfCurrent(epoch, LoginFailure{Message: client.ErrorMessage(err)})
		}
		return err
	}

	if !c.dispatchIfCurrent(epoch, LoginSuccess{Payload: result}) {
		// A newer login or logout superseded this attempt.
		return nil
	}

	c.redirecting.Store(false)

	// Reconcile any fields the login response omitted. Keyed on the epoch so
	// a logout in the meantime discards the result.
	go c.verifyInBackground(ctx, epoch)

	return nil
}

// Register creates an account.
//
// Registration never authenticates: the shared loading flag is raised and
// lowered, but IsAuthenticated is untouched and the caller must log in
// explicitly afterwards.
func (c *Controller) Register(ctx context.Context, registration client.Registration) (*client.User, error) {
	epoch := c.currentEpoch()
	c.dispatch(LoginStart{})

	user, err := c.api.Register(ctx, registration)
	if err != nil {
		c.dispatchIfCurrent(epoch, LoginFailure{Message: client.ErrorMessage(err)})
		return nil, err
	}

	c.dispatchIfCurrent(epoch, InitComplete{})
	return user, nil
}

// Logout tears the session down.
//
// The server call is best-effort: its failure is logged, never surfaced, and
// the local teardown happens unconditionally so the client can never be
// stuck looking authenticated because logout timed out. Idempotent.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.api.Logout(ctx); err != nil {
		c.logger.Warn("server_logout_failed", slog.Any("error", err))
	}

	c.bumpEpoch()
	c.dispatch(Logout{})
	c.redirecting.Store(false)
}

// RefreshUser re-fetches the profile from the server.
//
// No-op without a session marker. A 401 confirms the session is dead and
// forces logout; any other failure is recorded without signing the user out.
func (c *Controller) RefreshUser(ctx context.Context) error {
	if _, marker, _ := c.store.Load(); !marker {
		return nil
	}

	epoch := c.currentEpoch()
	c.dispatch(RefreshStart{})

	user, err := c.api.Me(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			c.ForceLogout()
			return err
		}
		c.dispatchIfCurrent(epoch, RefreshFailure{Message: client.ErrorMessage(err)})
		return err
	}

	c.dispatchIfCurrent(epoch, RefreshSuccess{User: user})
	return nil
}

// UpdateUser shallow-merges a partial patch into the current profile.
//
// Local-only and synchronous; used for optimistic updates after sub-resource
// writes without a full round trip.
func (c *Controller) UpdateUser(patch client.UserPatch) {
	c.dispatch(UpdateUser{Patch: patch})
}

// ForceLogout tears the session down after a confirmed invalidation.
//
// Idempotent under concurrent triggers: when several in-flight requests 401
// at once, the store is cleared and the redirect handler fires exactly once.
func (c *Controller) ForceLogout() {
	if !c.redirecting.CompareAndSwap(false, true) {
		return
	}

	c.bumpEpoch()
	c.dispatch(Logout{})

	if c.onForcedLogout != nil {
		time.AfterFunc(c.settleDelay, c.onForcedLogout)
	}
}

// # Internals

// verifyInBackground reconciles the optimistic session against the server.
//
// Transient failures are retried with doubling delay up to the configured
// attempt bound; exhaustion records the error but leaves the session intact
// (the user may simply be offline). Only a 401 tears the session down.
func (c *Controller) verifyInBackground(ctx context.Context, epoch uint64) {
	delay := c.retryBaseDelay

	for attempt := 1; ; attempt++ {
		user, err := c.api.Me(ctx)

		if err == nil {
			c.dispatchIfCurrent(epoch, RefreshSuccess{User: user})
			return
		}

		if client.IsUnauthorized(err) {
			if c.epochCurrent(epoch) {
				c.ForceLogout()
			}
			return
		}

		if attempt >= c.retryAttempts {
			c.dispatchIfCurrent(epoch, RefreshFailure{Message: client.ErrorMessage(err)})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2

		if !c.epochCurrent(epoch) {
			return
		}
	}
}

// dispatch applies an action and performs its storage effect.
func (c *Controller) dispatch(action Action) {
	c.mu.Lock()
	c.state = Reduce(c.state, action)
	next := c.state
	c.mu.Unlock()

	c.persist(action, next)
}

// dispatchIfCurrent applies an action only if the epoch is still current.
// It reports whether the action was applied.
func (c *Controller) dispatchIfCurrent(epoch uint64, action Action) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.state = Reduce(c.state, action)
	next := c.state
	c.mu.Unlock()

	c.persist(action, next)
	return true
}

// persist performs the storage side effect implied by an applied action.
//
// The reducer stays pure; this is the single place state reaches disk.
func (c *Controller) persist(action Action, state State) {
	var err error

	switch action.(type) {
	case LoginSuccess, RefreshSuccess, RestoreFromStorage, UpdateUser:
		if state.User != nil {
			err = c.store.Save(state.User)
		}
	case Logout:
		err = c.store.Clear()
	}

	if err != nil {
		c.logger.Warn("credential_store_write_failed", slog.Any("error", err))
	}
}

func (c *Controller) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *Controller) bumpEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.epoch
}

func (c *Controller) epochCurrent(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}
