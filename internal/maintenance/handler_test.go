package maintenance

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collectrium-auth/internal/admin"
)

func newMock(t *testing.T, cronSecret string) (*CleanupHandler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewCleanupHandler(admin.NewRepository(mock), zap.NewNop(), cronSecret), mock
}

func doCleanup(handler *CleanupHandler, authorization string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	handler.Handle(recorder, request)
	return recorder
}

func TestCleanup_NoSecretConfigured(t *testing.T) {
	handler, _ := newMock(t, "")
	require.Equal(t, http.StatusNotFound, doCleanup(handler, "Bearer whatever").Code)
}

func TestCleanup_WrongSecret(t *testing.T) {
	handler, _ := newMock(t, "cron-secret")
	require.Equal(t, http.StatusUnauthorized, doCleanup(handler, "").Code)
	require.Equal(t, http.StatusUnauthorized, doCleanup(handler, "Bearer nope").Code)
}

func TestCleanup_RevokesBlockedSessions(t *testing.T) {
	handler, mock := newMock(t, "cron-secret")

	mock.ExpectExec(`UPDATE users SET refresh_token = NULL.+WHERE blocked AND refresh_token IS NOT NULL`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	recorder := doCleanup(handler, "Bearer cron-secret")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"revoked_sessions":2`)
	require.NoError(t, mock.ExpectationsWereMet())
}
