// Package admin exposes user administration to ADMIN accounts.
package admin

import (
	"context"
	"fmt"
	"time"

	"collectrium-auth/internal/user"
)

// Account is the administrative view of a user record.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository struct {
	pool user.PgxPool
}

func NewRepository(pool user.PgxPool) *Repository {
	return &Repository{pool: pool}
}

// List returns every account, newest first.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, role, blocked, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.Blocked, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// SetBlocked flips the block flag for the given ids. Blocking also empties
// the refresh token slot so the account cannot rotate its way back in.
func (r *Repository) SetBlocked(ctx context.Context, ids []string, blocked bool) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET blocked = $2,
		    refresh_token = CASE WHEN $2 THEN NULL ELSE refresh_token END,
		    updated_at = NOW()
		WHERE id = ANY($1)
	`, ids, blocked)
	if err != nil {
		return 0, fmt.Errorf("update block flag: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes the given accounts.
func (r *Repository) Delete(ctx context.Context, ids []string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RevokeBlockedSessions clears the refresh token slot of every blocked
// account that still has one.
func (r *Repository) RevokeBlockedSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET refresh_token = NULL, updated_at = NOW()
		WHERE blocked AND refresh_token IS NOT NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("revoke blocked sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
