package user

import (
	"context"
	"fmt"
)

// Service orchestrates registration and the session lifecycle: login,
// rotation, and logout.
type Service struct {
	store  Store
	tokens *TokenManager
}

func NewService(store Store, tokens *TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates an account with a freshly hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (Profile, error) {
	if name == "" || email == "" || password == "" {
		return Profile{}, ErrValidation
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Profile{}, err
	}

	u, err := s.store.Create(ctx, NewUser{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

// Login authenticates by email and password and issues a fresh token pair.
// The refresh token is persisted before anything is returned; a store write
// failure aborts the login. Any previously persisted refresh token is
// overwritten, which logs out other devices.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, TokenPair, error) {
	if email == "" || password == "" {
		return Identity{}, TokenPair{}, ErrValidation
	}

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	if u.Blocked {
		return Identity{}, TokenPair{}, ErrBlocked
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return Identity{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	if err := s.store.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return u.Identity(), pair, nil
}

// Rotate exchanges a valid refresh token for a new pair, invalidating the
// presented token. A presented token that no longer matches the persisted
// slot is a replay of a superseded token and fails with ErrTokenReuse; the
// conditional store update closes the race between concurrent rotations.
func (s *Service) Rotate(ctx context.Context, presented string) (Identity, TokenPair, error) {
	if presented == "" {
		return Identity{}, TokenPair{}, ErrMissingToken
	}

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}

	u, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	if u.Blocked {
		return Identity{}, TokenPair{}, ErrBlocked
	}
	if u.RefreshToken != presented {
		return Identity{}, TokenPair{}, ErrTokenReuse
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	if err := s.store.SwapRefreshToken(ctx, u.ID, presented, pair.RefreshToken); err != nil {
		return Identity{}, TokenPair{}, err
	}

	return u.Identity(), pair, nil
}

// Logout empties the persisted refresh token slot. Calling it twice is not
// an error.
func (s *Service) Logout(ctx context.Context, id string) error {
	return s.store.ClearRefreshToken(ctx, id)
}

// Profile loads the account profile for the authenticated user.
func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

func (s *Service) issuePair(u User) (TokenPair, error) {
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(u)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
