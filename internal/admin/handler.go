package admin

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"collectrium-auth/internal/web"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type blockRequest struct {
	UserIDs []string `json:"user_ids"`
	Blocked bool     `json:"blocked"`
}

type deleteRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.List(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	web.JSON(w, http.StatusOK, map[string][]Account{"users": accounts}, "all users")
}

func (h *Handler) BlockUsers(w http.ResponseWriter, r *http.Request) {
	var body blockRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if !validIDs(body.UserIDs) {
		web.Error(w, http.StatusBadRequest, "invalid user ids")
		return
	}

	updated, err := h.repo.SetBlocked(r.Context(), body.UserIDs, body.Blocked)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, "failed to update users")
		return
	}

	message := "users unblocked successfully"
	if body.Blocked {
		message = "users blocked successfully"
	}
	web.JSON(w, http.StatusOK, map[string]int64{"updated": updated}, message)
}

func (h *Handler) DeleteUsers(w http.ResponseWriter, r *http.Request) {
	var body deleteRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if !validIDs(body.UserIDs) {
		web.Error(w, http.StatusBadRequest, "invalid user ids")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), body.UserIDs)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, "failed to delete users")
		return
	}

	web.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted}, "users deleted successfully")
}

func validIDs(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
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
