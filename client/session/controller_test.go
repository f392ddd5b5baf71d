// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changas-app/changas/client"
	"github.com/changas-app/changas/client/session"
)

// fakeAPI is a scripted transport for controller tests.
type fakeAPI struct {
	mu sync.Mutex

	loginFn    func(client.Credentials) (*client.LoginResult, error)
	registerFn func(client.Registration) (*client.User, error)
	meFn       func() (*client.User, error)
	logoutErr  error

	meCalls     int
	logoutCalls int
}

func (api *fakeAPI) Login(_ context.Context, credentials client.Credentials) (*client.LoginResult, error) {
	return api.loginFn(credentials)
}

func (api *fakeAPI) Register(_ context.Context, registration client.Registration) (*client.User, error) {
	return api.registerFn(registration)
}

func (api *fakeAPI) Logout(context.Context) error {
	api.mu.Lock()
	api.logoutCalls++
	api.mu.Unlock()
	return api.logoutErr
}

func (api *fakeAPI) Me(context.Context) (*client.User, error) {
	api.mu.Lock()
	api.meCalls++
	api.mu.Unlock()
	return api.meFn()
}

func unauthorizedErr() error {
	return &client.APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Invalid or expired session"}
}

func newTestController(api *fakeAPI, store session.CredentialStore, options ...session.ControllerOption) *session.Controller {
	options = append(options,
		session.WithSettleDelay(time.Millisecond),
		session.WithRetryPolicy(1, time.Millisecond),
	)
	return session.NewController(api, store, options...)
}

/*
TestController_LoginSuccess covers the successful login scenario: credentials
in, authenticated state and persisted profile out.
*/
func TestController_LoginSuccess(t *testing.T) {
	user := testUser()
	api := &fakeAPI{
		loginFn: func(credentials client.Credentials) (*client.LoginResult, error) {
			assert.Equal(t, "a@b.com", credentials.Email)
			assert.Equal(t, "x", credentials.Password)
			return &client.LoginResult{User: user, Message: "ok"}, nil
		},
		meFn: func() (*client.User, error) { return user, nil },
	}
	store := session.NewMemoryStore()
	controller := newTestController(api, store)

	err := controller.Login(context.Background(), client.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	state := controller.State()
	assert.True(t, state.IsAuthenticated)
	assert.Empty(t, state.Err)
	require.NotNil(t, state.User)
	assert.Equal(t, "a@b.com", state.User.Email)

	stored, marker, err := store.Load()
	require.NoError(t, err)
	assert.True(t, marker, "login must create the session marker")
	require.NotNil(t, stored)
	assert.Equal(t, "a@b.com", stored.Email)
}

/*
TestController_LoginFailure covers the rejected login scenario: both the
state records the server's message AND the caller receives the error.
*/
func TestController_LoginFailure(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(client.Credentials) (*client.LoginResult, error) {
			return nil, &client.APIError{
				StatusCode: http.StatusUnauthorized,
				Code:       "UNAUTHORIZED",
				Message:    "Credenciales inválidas",
			}
		},
	}
	store := session.NewMemoryStore()
	controller := newTestController(api, store)

	err := controller.Login(context.Background(), client.Credentials{Email: "a@b.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Credenciales inválidas", client.ErrorMessage(err))

	state := controller.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Equal(t, "Credenciales inválidas", state.Err)

	_, marker, _ := store.Load()
	assert.False(t, marker, "a failed login must not create a session marker")
}

/*
TestController_LoginMalformedResponse verifies a user-less success payload
never authenticates.
*/
func TestController_LoginMalformedResponse(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(client.Credentials) (*client.LoginResult, error) {
			return nil, client.ErrMalformedResponse
		},
	}
	controller := newTestController(api, session.NewMemoryStore())

	err := controller.Login(context.Background(), client.Credentials{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, client.IsMalformedResponse(err))

	state := controller.State()
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, session.ErrInvalidServerResponse, state.Err)
}

/*
TestController_LogoutIdempotent verifies repeated logouts, including ones
whose server call fails, converge on a single clean signed-out state.
*/
func TestController_LogoutIdempotent(t *testing.T) {
	var redirects atomic.Int32
	api := &fakeAPI{
		loginFn: func(client.Credentials) (*client.LoginResult, error) {
			return &client.LoginResult{User: testUser(), Message: "ok"}, nil
		},
		meFn:      func() (*client.User, error) { return testUser(), nil },
		logoutErr: errors.New("network down"),
	}
	store := session.NewMemoryStore()
	controller := newTestController(api, store, session.WithForcedLogoutHandler(func() {
		redirects.Add(1)
	}))

	require.NoError(t, controller.Login(context.Background(), client.Credentials{Email: "a@b.com", Password: "x"}))

	controller.Logout(context.Background())
	controller.Logout(context.Background())

	state := controller.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Err)

	_, marker, _ := store.Load()
	assert.False(t, marker)
	assert.Equal(t, int32(0), redirects.Load(), "a user-initiated logout never redirects")
	assert.Equal(t, 2, api.logoutCalls)
}

/*
TestController_OptimisticRestore verifies that with a marker and a cached
profile, Initialize yields an authenticated state before any network
response, and that a later transient verification failure keeps it.
*/
func TestController_OptimisticRestore(t *testing.T) {
	verified := make(chan struct{})
	api := &fakeAPI{
		meFn: func() (*client.User, error) {
			defer close(verified)
			return nil, errors.New("connection refused")
		},
	}
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(testUser()))

	controller := newTestController(api, store)
	controller.Initialize(context.Background())

	// Synchronously authenticated, regardless of the in-flight verification.
	state := controller.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	require.NotNil(t, state.User)

	<-verified
	require.Eventually(t, func() bool {
		return controller.State().Err != ""
	}, time.Second, 5*time.Millisecond)

	state = controller.State()
	assert.True(t, state.IsAuthenticated, "a transient verification failure must not sign the user out")
	require.NotNil(t, state.User)
}

/*
TestController_ConfirmedInvalidTeardown verifies that a 401 during background
verification tears the session down: state, storage, and a single redirect.
*/
func TestController_ConfirmedInvalidTeardown(t *testing.T) {
	var redirects atomic.Int32
	api := &fakeAPI{
		meFn: func() (*client.User, error) { return nil, unauthorizedErr() },
	}
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(testUser()))

	controller := newTestController(api, store, session.WithForcedLogoutHandler(func() {
		redirects.Add(1)
	}))
	controller.Initialize(context.Background())

	require.Eventually(t, func() bool {
		return !controller.State().IsAuthenticated
	}, time.Second, 5*time.Millisecond)

	_, marker, _ := store.Load()
	assert.False(t, marker, "the cached profile must be removed")

	require.Eventually(t, func() bool {
		return redirects.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// A second confirmed invalidation in the same episode stays silent.
	controller.ForceLogout()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), redirects.Load())
}

/*
TestController_InitializeWithoutMarker settles immediately as signed out
without touching the network.
*/
func TestController_InitializeWithoutMarker(t *testing.T) {
	api := &fakeAPI{
		meFn: func() (*client.User, error) { return testUser(), nil },
	}
	controller := newTestController(api, session.NewMemoryStore())

	controller.Initialize(context.Background())

	state := controller.State()
	assert.False(t, state.Loading)
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, 0, api.meCalls)
}

/*
TestController_InitializeMarkerWithoutProfile verifies the synchronous
verification path: success restores, failure clears the marker.
*/
func TestController_InitializeMarkerWithoutProfile(t *testing.T) {
	t.Run("verification_succeeds", func(t *testing.T) {
		api := &fakeAPI{
			meFn: func() (*client.User, error) { return testUser(), nil },
		}
		store := session.NewMemoryStore()
		store.SetMarker()

		controller := newTestController(api, store)
		controller.Initialize(context.Background())

		state := controller.State()
		assert.True(t, state.IsAuthenticated)
		require.NotNil(t, state.User)
	})

	t.Run("verification_fails", func(t *testing.T) {
		api := &fakeAPI{
			meFn: func() (*client.User, error) { return nil, unauthorizedErr() },
		}
		store := session.NewMemoryStore()
		store.SetMarker()

		controller := newTestController(api, store)
		controller.Initialize(context.Background())

		state := controller.State()
		assert.False(t, state.IsAuthenticated)
		assert.False(t, state.Loading)

		_, marker, _ := store.Load()
		assert.False(t, marker)
	})
}

/*
TestController_RegisterNeverAuthenticates preserves the documented behavior:
a successful registration returns the account but leaves the session signed
out.
*/
func TestController_RegisterNeverAuthenticates(t *testing.T) {
	api := &fakeAPI{
		registerFn: func(registration client.Registration) (*client.User, error) {
			assert.Equal(t, "cliente", registration.TipoUsuario)
			return testUser(), nil
		},
	}
	store := session.NewMemoryStore()
	controller := newTestController(api, store)

	user, err := controller.Register(context.Background(), client.Registration{
		Email:       "a@b.com",
		Password:    "secret123",
		DisplayName: "Ana",
		TipoUsuario: "cliente",
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	state := controller.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Nil(t, state.User)

	_, marker, _ := store.Load()
	assert.False(t, marker)
}

/*
TestController_StaleRefreshDiscarded verifies the session epoch: a background
verification that resolves after the user logged out is thrown away.
*/
func TestController_StaleRefreshDiscarded(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{
		loginFn: func(client.Credentials) (*client.LoginResult, error) {
			return &client.LoginResult{User: testUser(), Message: "ok"}, nil
		},
		meFn: func() (*client.User, error) {
			<-release
			return testUser(), nil
		},
	}
	store := session.NewMemoryStore()
	controller := newTestController(api, store)

	require.NoError(t, controller.Login(context.Background(), client.Credentials{Email: "a@b.com", Password: "x"}))

	// The user logs out while the background reconciliation is in flight.
	controller.Logout(context.Background())
	close(release)

	// The late result must not resurrect the session.
	time.Sleep(50 * time.Millisecond)
	state := controller.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)

	_, marker, _ := store.Load()
	assert.False(t, marker, "a stale refresh must not re-create the marker")
}

/*
TestController_RefreshUser covers the explicit refresh paths: no-op without a
marker, transient failure recorded without teardown, 401 forcing teardown.
*/
func TestController_RefreshUser(t *testing.T) {
	t.Run("noop_without_marker", func(t *testing.T) {
		api := &fakeAPI{meFn: func() (*client.User, error) { return testUser(), nil }}
		controller := newTestController(api, session.NewMemoryStore())

		require.NoError(t, controller.RefreshUser(context.Background()))
		assert.Equal(t, 0, api.meCalls)
	})

	t.Run("transient_failure_keeps_session", func(t *testing.T) {
		api := &fakeAPI{meFn: func() (*client.User, error) { return nil, errors.New("timeout") }}
		store := session.NewMemoryStore()
		require.NoError(t, store.Save(testUser()))

		controller := newTestController(api, store)
		controller.Initialize(context.Background())

		err := controller.RefreshUser(context.Background())
		require.Error(t, err)

		state := controller.State()
		assert.True(t, state.IsAuthenticated)
		assert.Equal(t, "timeout", state.Err)
	})

	t.Run("unauthorized_forces_teardown", func(t *testing.T) {
		api := &fakeAPI{meFn: func() (*client.User, error) { return nil, unauthorizedErr() }}
		store := session.NewMemoryStore()
		require.NoError(t, store.Save(testUser()))

		controller := newTestController(api, store)

		err := controller.RefreshUser(context.Background())
		require.Error(t, err)

		assert.False(t, controller.State().IsAuthenticated)
		_, marker, _ := store.Load()
		assert.False(t, marker)
	})
}

/*
TestController_UpdateUserPersists verifies the local shallow merge reaches
the credential store.
*/
func TestController_UpdateUserPersists(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(client.Credentials) (*client.LoginResult, error) {
			return &client.LoginResult{User: testUser(), Message: "ok"}, nil
		},
		// The background reconciliation fails transiently so it cannot race
		// the patch below with a competing profile snapshot.
		meFn: func() (*client.User, error) { return nil, errors.New("timeout") },
	}
	store := session.NewMemoryStore()
	controller := newTestController(api, store)

	require.NoError(t, controller.Login(context.Background(), client.Credentials{Email: "a@b.com", Password: "x"}))

	location := "Córdoba"
	controller.UpdateUser(client.UserPatch{Location: &location})

	assert.Equal(t, "Córdoba", controller.State().User.Location)

	stored, _, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Córdoba", stored.Location)
}
