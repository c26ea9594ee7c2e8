package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
)

// LoginUser records the token's signature as active for the user. The
// signature is the ledger key, so re-issuing an identical token is an upsert
// rather than a conflict.
func (s *Store) LoginUser(ctx context.Context, userID int64, token string) error {
	sig := auth.TokenSignature(token)
	if sig == "" {
		return errors.New("login user: token has no signature")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth (token, user_id) VALUES ($1, $2)
		 ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id`,
		sig, userID)
	if err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	return nil
}

// IsLoggedIn reports whether the token's signature is active in the ledger.
// A malformed token has an empty signature and never matches.
func (s *Store) IsLoggedIn(ctx context.Context, token string) (bool, error) {
	sig := auth.TokenSignature(token)
	if sig == "" {
		return false, nil
	}
	var userID int64
	row := s.db.QueryRowContext(ctx, `SELECT user_id FROM auth WHERE token = $1`, sig)
	switch err := row.Scan(&userID); {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("is logged in: %w", err)
	}
}

// LogoutUser revokes the token's signature. Revoking an unknown or already
// revoked signature is a no-op.
func (s *Store) LogoutUser(ctx context.Context, token string) error {
	sig := auth.TokenSignature(token)
	if sig == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth WHERE token = $1`, sig); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	return nil
}
