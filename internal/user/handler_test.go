package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collectrium-auth/internal/web"
)

type testServer struct {
	mux   *http.ServeMux
	store *fakeStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := newFakeStore()
	tokens := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	service := NewService(store, tokens)
	handler := NewHandler(service, tokens.RefreshTTL(), false)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/users/register", handler.Register)
	mux.HandleFunc("POST /api/v1/users/login", handler.Login)
	mux.HandleFunc("GET /api/v1/users/refresh", handler.Refresh)
	mux.Handle("GET /api/v1/users/logout", Authenticate(tokens, store, http.HandlerFunc(handler.Logout)))
	mux.Handle("GET /api/v1/users", Authenticate(tokens, store, RequireRole(RoleUser, http.HandlerFunc(handler.Me))))

	return &testServer{mux: mux, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, nil)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}

	recorder := httptest.NewRecorder()
	s.mux.ServeHTTP(recorder, request)
	return recorder
}

func refreshCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == refreshCookieName {
			return cookie
		}
	}
	t.Fatal("no refresh cookie in response")
	return nil
}

func withCookie(cookie *http.Cookie) http.Header {
	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)
	return header
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) web.Response {
	t.Helper()
	var body web.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestHandler_EndToEndSessionLifecycle(t *testing.T) {
	server := newTestServer(t)

	// Register.
	recorder := server.do(t, http.MethodPost, "/api/v1/users/register",
		`{"name":"Alice","email":"a@x.com","password":"pw123secret"}`, nil)
	require.Equal(t, http.StatusCreated, recorder.Code)
	require.True(t, decodeEnvelope(t, recorder).Success)

	// Duplicate registration conflicts.
	recorder = server.do(t, http.MethodPost, "/api/v1/users/register",
		`{"name":"Alice","email":"a@x.com","password":"pw123secret"}`, nil)
	require.Equal(t, http.StatusConflict, recorder.Code)

	// Login sets the refresh cookie and returns the access token.
	recorder = server.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"a@x.com","password":"pw123secret"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	cookie := refreshCookie(t, recorder)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	require.NotEmpty(t, cookie.Value)
	require.Equal(t, cookie.Value, server.store.persistedToken(t, "a@x.com"))

	var session struct {
		User        Identity `json:"user"`
		AccessToken string   `json:"access_token"`
		TokenType   string   `json:"token_type"`
	}
	envelope := decodeEnvelope(t, recorder)
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &session))
	require.Equal(t, "a@x.com", session.User.Email)
	require.NotEmpty(t, session.AccessToken)
	require.Equal(t, "Bearer", session.TokenType)

	// Profile with the bearer token.
	authHeader := http.Header{}
	authHeader.Set("Authorization", "Bearer "+session.AccessToken)
	recorder = server.do(t, http.MethodGet, "/api/v1/users", "", authHeader)
	require.Equal(t, http.StatusOK, recorder.Code)

	// Rotation replaces the cookie; the old token is now rejected.
	recorder = server.do(t, http.MethodGet, "/api/v1/users/refresh", "", withCookie(cookie))
	require.Equal(t, http.StatusOK, recorder.Code)
	rotated := refreshCookie(t, recorder)
	require.NotEqual(t, cookie.Value, rotated.Value)
	require.Equal(t, rotated.Value, server.store.persistedToken(t, "a@x.com"))

	recorder = server.do(t, http.MethodGet, "/api/v1/users/refresh", "", withCookie(cookie))
	require.Equal(t, http.StatusForbidden, recorder.Code)
	// Failure expires the cookie.
	cleared := refreshCookie(t, recorder)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)

	// The rotated token still works.
	recorder = server.do(t, http.MethodGet, "/api/v1/users/refresh", "", withCookie(rotated))
	require.Equal(t, http.StatusOK, recorder.Code)
	latest := refreshCookie(t, recorder)

	// Logout clears the slot; the latest token is then rejected.
	recorder = server.do(t, http.MethodGet, "/api/v1/users/logout", "", authHeader)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Empty(t, server.store.persistedToken(t, "a@x.com"))

	recorder = server.do(t, http.MethodGet, "/api/v1/users/refresh", "", withCookie(latest))
	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestHandler_Register_Validation(t *testing.T) {
	server := newTestServer(t)

	for name, body := range map[string]string{
		"invalid json":   `{"name":`,
		"missing name":   `{"email":"a@x.com","password":"pw123secret"}`,
		"bad email":      `{"name":"Alice","email":"not-an-email","password":"pw123secret"}`,
		"short password": `{"name":"Alice","email":"a@x.com","password":"short"}`,
	} {
		recorder := server.do(t, http.MethodPost, "/api/v1/users/register", body, nil)
		require.Equalf(t, http.StatusBadRequest, recorder.Code, "case %q", name)
		require.False(t, decodeEnvelope(t, recorder).Success)
	}
}

func TestHandler_Login_ErrorStatuses(t *testing.T) {
	server := newTestServer(t)
	recorder := server.do(t, http.MethodPost, "/api/v1/users/register",
		`{"name":"Alice","email":"a@x.com","password":"pw123secret"}`, nil)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = server.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"unknown@x.com","password":"pw123secret"}`, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = server.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"a@x.com","password":"wrong-password"}`, nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	server.store.setBlocked(t, "a@x.com", true)
	recorder = server.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"a@x.com","password":"pw123secret"}`, nil)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	envelope := decodeEnvelope(t, recorder)
	require.False(t, envelope.Success)
	require.Equal(t, http.StatusForbidden, envelope.StatusCode)
}

func TestHandler_Refresh_MissingCookie(t *testing.T) {
	server := newTestServer(t)

	recorder := server.do(t, http.MethodGet, "/api/v1/users/refresh", "", nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Equal(t, ErrMissingToken.Error(), decodeEnvelope(t, recorder).Message)
}

func TestHandler_Refresh_TamperedToken(t *testing.T) {
	server := newTestServer(t)
	recorder := server.do(t, http.MethodPost, "/api/v1/users/register",
		`{"name":"Alice","email":"a@x.com","password":"pw123secret"}`, nil)
	require.Equal(t, http.StatusCreated, recorder.Code)
	recorder = server.do(t, http.MethodPost, "/api/v1/users/login",
		`{"email":"a@x.com","password":"pw123secret"}`, nil)
	cookie := refreshCookie(t, recorder)

	cookie.Value = cookie.Value[:len(cookie.Value)-4] + "xxxx"
	recorder = server.do(t, http.MethodGet, "/api/v1/users/refresh", "", withCookie(cookie))
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Equal(t, ErrInvalidToken.Error(), decodeEnvelope(t, recorder).Message)
}
