// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package auth_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changas-app/changas/internal/platform/constants"
	"github.com/changas-app/changas/internal/platform/middleware"
	"github.com/changas-app/changas/internal/platform/sec"
	"github.com/changas-app/changas/internal/users/account"
	"github.com/changas-app/changas/internal/users/auth"
)

// newTestServer wires the auth and account handlers onto a router shaped
// like the production one, backed by in-memory repositories.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tokens, err := sec.NewTokenService(testSecret, constants.AuthIssuer)
	require.NoError(t, err)

	users := auth.NewMemoryUserRepository()
	service := auth.NewService(
		users,
		auth.NewMemorySessionRepository(),
		auth.NewMemoryVerificationTokenRepository(),
		tokens,
		slog.New(slog.DiscardHandler),
	)

	authHandler := auth.NewHandler(service, false)
	accountHandler := account.NewHandler(account.NewService(users))

	router := chi.NewRouter()
	router.Use(middleware.RequestID())
	router.Use(middleware.Authenticate(tokens))
	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/auth", authHandler.Routes())
		v1.Route("/users", func(usersRouter chi.Router) {
			usersRouter.Post("/register", authHandler.Register)
			usersRouter.Mount("/", accountHandler.Routes())
		})
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func jarClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, httpClient *http.Client, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	response, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return response
}

func decodeBody(t *testing.T, response *http.Response) map[string]any {
	t.Helper()
	defer response.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	return body
}

func registerAna(t *testing.T, httpClient *http.Client, baseURL string) {
	t.Helper()
	response := postJSON(t, httpClient, baseURL+"/api/v1/users/register", map[string]any{
		"email":        "ana@changas.app",
		"password":     "secreto123",
		"display_name": "Ana García",
		"tipo_usuario": "cliente",
	})
	defer response.Body.Close()
	require.Equal(t, http.StatusCreated, response.StatusCode)
}

/*
TestHandler_Register covers account creation over HTTP, including validation
failures and duplicates.
*/
func TestHandler_Register(t *testing.T) {
	server := newTestServer(t)
	httpClient := jarClient(t)

	t.Run("created", func(t *testing.T) {
		response := postJSON(t, httpClient, server.URL+"/api/v1/users/register", map[string]any{
			"email":        "ana@changas.app",
			"password":     "secreto123",
			"display_name": "Ana García",
			"tipo_usuario": "cliente",
		})
		require.Equal(t, http.StatusCreated, response.StatusCode)

		// Registration never sets session cookies.
		assert.Empty(t, response.Cookies())

		body := decodeBody(t, response)
		data := body["data"].(map[string]any)
		assert.Equal(t, "ana@changas.app", data["email"])
		assert.Equal(t, "cliente", data["tipo_usuario"])
		assert.Nil(t, data["password_hash"])
	})

	t.Run("invalid_tipo_usuario", func(t *testing.T) {
		response := postJSON(t, httpClient, server.URL+"/api/v1/users/register", map[string]any{
			"email":        "otro@changas.app",
			"password":     "secreto123",
			"display_name": "Otro",
			"tipo_usuario": "superadmin",
		})
		require.Equal(t, http.StatusBadRequest, response.StatusCode)

		body := decodeBody(t, response)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
	})

	t.Run("duplicate_email", func(t *testing.T) {
		response := postJSON(t, httpClient, server.URL+"/api/v1/users/register", map[string]any{
			"email":        "ana@changas.app",
			"password":     "secreto123",
			"display_name": "Ana Otra",
			"tipo_usuario": "cliente",
		})
		require.Equal(t, http.StatusConflict, response.StatusCode)

		body := decodeBody(t, response)
		assert.Equal(t, "El email ya está registrado", body["error"])
	})
}

/*
TestHandler_LoginSetsCookies verifies both HttpOnly cookies and the response
envelope of a successful login.
*/
func TestHandler_LoginSetsCookies(t *testing.T) {
	server := newTestServer(t)
	httpClient := jarClient(t)
	registerAna(t, httpClient, server.URL)

	response := postJSON(t, httpClient, server.URL+"/api/v1/auth/login", map[string]any{
		"email":    "ana@changas.app",
		"password": "secreto123",
	})
	require.Equal(t, http.StatusOK, response.StatusCode)

	cookies := map[string]*http.Cookie{}
	for _, cookie := range response.Cookies() {
		cookies[cookie.Name] = cookie
	}

	session, found := cookies[constants.SessionTokenCookieName]
	require.True(t, found, "login must set the session cookie")
	assert.True(t, session.HttpOnly)
	assert.Equal(t, constants.SessionTokenCookiePath, session.Path)
	assert.NotEmpty(t, session.Value)

	refresh, found := cookies[constants.RefreshTokenCookieName]
	require.True(t, found, "login must set the refresh cookie")
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, constants.RefreshTokenCookiePath, refresh.Path)

	body := decodeBody(t, response)
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "ana@changas.app", user["email"])
	assert.Equal(t, "ok", data["message"])
	assert.NotEmpty(t, data["token"])
}

/*
TestHandler_LoginRejected surfaces the generic credentials error.
*/
func TestHandler_LoginRejected(t *testing.T) {
	server := newTestServer(t)
	httpClient := jarClient(t)
	registerAna(t, httpClient, server.URL)

	response := postJSON(t, httpClient, server.URL+"/api/v1/auth/login", map[string]any{
		"email":    "ana@changas.app",
		"password": "incorrecta",
	})
	require.Equal(t, http.StatusUnauthorized, response.StatusCode)

	body := decodeBody(t, response)
	assert.Equal(t, "Credenciales inválidas", body["error"])
	assert.Equal(t, "UNAUTHORIZED", body["code"])
	assert.Empty(t, response.Cookies())
}

/*
TestHandler_SessionFlow walks login → me → refresh → me → logout → me using
a cookie jar, the way a browser would.
*/
func TestHandler_SessionFlow(t *testing.T) {
	server := newTestServer(t)
	httpClient := jarClient(t)
	registerAna(t, httpClient, server.URL)

	login := postJSON(t, httpClient, server.URL+"/api/v1/auth/login", map[string]any{
		"email":    "ana@changas.app",
		"password": "secreto123",
	})
	login.Body.Close()
	require.Equal(t, http.StatusOK, login.StatusCode)

	// Authenticated: the jar forwards the session cookie.
	me, err := httpClient.Get(server.URL + "/api/v1/users/me")
	require.NoError(t, err)
	body := decodeBody(t, me)
	require.Equal(t, http.StatusOK, me.StatusCode)
	assert.Equal(t, "ana@changas.app", body["data"].(map[string]any)["email"])

	// Refresh rotates both cookies.
	refresh := postJSON(t, httpClient, server.URL+"/api/v1/auth/refresh", nil)
	refresh.Body.Close()
	require.Equal(t, http.StatusOK, refresh.StatusCode)

	me, err = httpClient.Get(server.URL + "/api/v1/users/me")
	require.NoError(t, err)
	me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)

	// Logout clears the session.
	logout := postJSON(t, httpClient, server.URL+"/api/v1/auth/logout", nil)
	logout.Body.Close()
	require.Equal(t, http.StatusNoContent, logout.StatusCode)

	me, err = httpClient.Get(server.URL + "/api/v1/users/me")
	require.NoError(t, err)
	me.Body.Close()
	require.Equal(t, http.StatusUnauthorized, me.StatusCode)
}

/*
TestHandler_RefreshRotationRevokesOldToken verifies a consumed refresh token
is dead: replaying it answers 401 and clears the cookies.
*/
func TestHandler_RefreshRotationRevokesOldToken(t *testing.T) {
	server := newTestServer(t)
	httpClient := jarClient(t)
	registerAna(t, httpClient, server.URL)

	login := postJSON(t, httpClient, server.URL+"/api/v1/auth/login", map[string]any{
		"email":    "ana@changas.app",
		"password": "secreto123",
	})
	login.Body.Close()
	require.Equal(t, http.StatusOK, login.StatusCode)

	var oldRefresh *http.Cookie
	for _, cookie := range login.Cookies() {
		if cookie.Name == constants.RefreshTokenCookieName {
			oldRefresh = cookie
		}
	}
	require.NotNil(t, oldRefresh)

	// First rotation through the jar succeeds and supersedes oldRefresh.
	rotation := postJSON(t, httpClient, server.URL+"/api/v1/auth/refresh", nil)
	rotation.Body.Close()
	require.Equal(t, http.StatusOK, rotation.StatusCode)

	// Replaying the consumed token outside the jar must fail.
	request, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/auth/refresh", nil)
	require.NoError(t, err)
	request.AddCookie(&http.Cookie{Name: constants.RefreshTokenCookieName, Value: oldRefresh.Value})

	replay, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer replay.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)

	// The failed refresh instructs the browser to drop the stale cookies.
	for _, cookie := range replay.Cookies() {
		assert.Less(t, cookie.MaxAge, 0, "cookie %s should be expired", cookie.Name)
	}
}

/*
TestHandler_RefreshWithoutCookie rejects a bare refresh call.
*/
func TestHandler_RefreshWithoutCookie(t *testing.T) {
	server := newTestServer(t)

	response, err := http.Post(server.URL+"/api/v1/auth/refresh", "application/json", nil)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
}

/*
TestHandler_LogoutIdempotent answers 204 even without a session.
*/
func TestHandler_LogoutIdempotent(t *testing.T) {
	server := newTestServer(t)

	for range 2 {
		response, err := http.Post(server.URL+"/api/v1/auth/logout", "application/json", nil)
		require.NoError(t, err)
		response.Body.Close()
		assert.Equal(t, http.StatusNoContent, response.StatusCode)
	}
}

/*
TestHandler_UpdateMe applies a shallow partial update through the account
routes with the session cookie.
*/
func TestHandler_UpdateMe(t *testing.T) {
	server := newTestServer(t)
	httpClient := jarClient(t)
	registerAna(t, httpClient, server.URL)

	login := postJSON(t, httpClient, server.URL+"/api/v1/auth/login", map[string]any{
		"email":    "ana@changas.app",
		"password": "secreto123",
	})
	login.Body.Close()
	require.Equal(t, http.StatusOK, login.StatusCode)

	patch, err := json.Marshal(map[string]any{"location": "Córdoba"})
	require.NoError(t, err)

	request, err := http.NewRequest(http.MethodPatch, server.URL+"/api/v1/users/me", bytes.NewReader(patch))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")

	// The jar attaches the session cookie automatically.
	response, err := httpClient.Do(request)
	require.NoError(t, err)
	body := decodeBody(t, response)
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := body["data"].(map[string]any)
	assert.Equal(t, "Córdoba", data["location"])
	assert.Equal(t, "Ana García", data["display_name"], "absent fields survive the patch")
}
