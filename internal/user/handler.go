package user

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"collectrium-auth/internal/web"
)

const (
	refreshCookieName = "refresh_token"
	maxJSONBodyBytes  = 1 << 20
	minPasswordLen    = 8
	maxPasswordLen    = 200
	maxNameLen        = 100
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Handler maps the session operations onto HTTP.
type Handler struct {
	service       *Service
	refreshTTL    time.Duration
	secureCookies bool
}

// NewHandler builds the HTTP handler. secureCookies should be false only in
// development, where the refresh cookie is sent over plain HTTP.
func NewHandler(service *Service, refreshTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{service: service, refreshTTL: refreshTTL, secureCookies: secureCookies}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the body for login and refresh responses. The refresh
// token is excluded; it travels only in the cookie.
type sessionResponse struct {
	User Identity `json:"user"`
	TokenPair
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Password = strings.TrimSpace(body.Password)

	if body.Name == "" || len(body.Name) > maxNameLen {
		web.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if !emailRegex.MatchString(body.Email) {
		web.Error(w, http.StatusBadRequest, "email format is invalid")
		return
	}
	if len(body.Password) < minPasswordLen || len(body.Password) > maxPasswordLen {
		web.Error(w, http.StatusBadRequest, "password format is invalid")
		return
	}

	if _, err := h.service.Register(r.Context(), body.Name, body.Email, body.Password); err != nil {
		h.respondError(w, err)
		return
	}

	web.JSON(w, http.StatusCreated, struct{}{}, "user registered successfully")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Password = strings.TrimSpace(body.Password)
	if body.Email == "" || body.Password == "" {
		web.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	identity, pair, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	web.JSON(w, http.StatusOK, sessionResponse{User: identity, TokenPair: pair}, "user logged in successfully")
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		presented = strings.TrimSpace(cookie.Value)
	}

	identity, pair, err := h.service.Rotate(r.Context(), presented)
	if err != nil {
		// The cookie is useless after any rotation failure; expire it so the
		// client falls back to a full login.
		h.clearRefreshCookie(w)
		h.respondError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	web.JSON(w, http.StatusOK, sessionResponse{User: identity, TokenPair: pair}, "access token refreshed")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	if err := h.service.Logout(r.Context(), identity.ID); err != nil {
		h.respondError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	web.JSON(w, http.StatusOK, struct{}{}, "user logged out")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	profile, err := h.service.Profile(r.Context(), identity.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	web.JSON(w, http.StatusOK, map[string]Profile{"user": profile}, "user info")
}

// respondError is the single boundary converting domain errors into the
// structured error envelope. Errors outside the taxonomy are reported to
// Sentry and surfaced as a generic 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		sentry.CaptureException(err)
		web.Error(w, status, "something went wrong")
		return
	}
	web.Error(w, status, err.Error())
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteNoneMode,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
