package user

import "time"

// Role is the authorization tier of an account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the persisted account record. RefreshToken holds the single
// currently-valid refresh token; an empty value means no active session.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Blocked      bool
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
}

// Profile is the public view of an account returned to its owner.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the per-request view of an authenticated user, derived from a
// verified access token plus a fresh read of the account record. It is never
// written back to the store.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Blocked bool   `json:"-"`
}

// TokenPair is the result of issuing a session. The refresh token travels in
// a cookie, never in the response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Blocked: u.Blocked}
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
