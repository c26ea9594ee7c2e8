package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/models"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// AddUser hashes the password and inserts the user row plus one role row per
// role assignment in a single transaction. A franchisee role names its
// franchise, which must already exist.
func (s *Store) AddUser(ctx context.Context, user models.User) (models.User, error) {
	digest, err := auth.HashPassword(user.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("begin add user: %w", err)
	}
	defer tx.Rollback()

	var id int64
	row := tx.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id`,
		user.Name, user.Email, digest)
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("add user %s: %w", user.Email, storage.ErrAlreadyExists)
		}
		return models.User{}, fmt.Errorf("add user: %w", err)
	}

	roles := make([]models.UserRole, 0, len(user.Roles))
	for _, r := range user.Roles {
		objectID := int64(0)
		if r.Role == models.RoleFranchisee {
			row := tx.QueryRowContext(ctx, `SELECT id FROM franchise WHERE name = $1`, r.Object)
			if err := row.Scan(&objectID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return models.User{}, &storage.NotFoundError{Msg: fmt.Sprintf("unknown franchise %s provided for role", r.Object)}
				}
				return models.User{}, fmt.Errorf("resolve franchise for role: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_role (user_id, role, object_id) VALUES ($1, $2, $3)`,
			id, r.Role, objectID); err != nil {
			return models.User{}, fmt.Errorf("add user role: %w", err)
		}
		roles = append(roles, models.UserRole{Role: r.Role, ObjectID: objectID})
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, fmt.Errorf("commit add user: %w", err)
	}

	user.ID = id
	user.Password = ""
	user.Roles = roles
	return user, nil
}

// GetUser looks a user up by email. When password is non-empty it is checked
// against the stored digest; a mismatch reports the same not-found error as a
// missing user so callers cannot probe for registered emails.
func (s *Store) GetUser(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	var digest string
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password FROM users WHERE email = $1`, email)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, &storage.NotFoundError{Msg: "unknown user"}
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	if password != "" && !auth.CheckPassword(password, digest) {
		return models.User{}, &storage.NotFoundError{Msg: "unknown user"}
	}

	roles, err := s.userRoles(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	user.Roles = roles
	return user, nil
}

// UpdateUser applies any non-empty field changes and returns the fresh user.
func (s *Store) UpdateUser(ctx context.Context, userID int64, name, email, password string) (models.User, error) {
	if name != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET name = $1 WHERE id = $2`, name, userID); err != nil {
			return models.User{}, fmt.Errorf("update user name: %w", err)
		}
	}
	if email != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET email = $1 WHERE id = $2`, email, userID); err != nil {
			if isUniqueViolation(err) {
				return models.User{}, fmt.Errorf("update user email: %w", storage.ErrAlreadyExists)
			}
			return models.User{}, fmt.Errorf("update user email: %w", err)
		}
	}
	if password != "" {
		digest, err := auth.HashPassword(password)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET password = $1 WHERE id = $2`, digest, userID); err != nil {
			return models.User{}, fmt.Errorf("update user password: %w", err)
		}
	}
	return s.getUserByID(ctx, userID)
}

func (s *Store) getUserByID(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`, userID)
	if err := row.Scan(&user.ID, &user.Name, &user.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, &storage.NotFoundError{Msg: "unknown user"}
		}
		return models.User{}, fmt.Errorf("get user by id: %w", err)
	}
	roles, err := s.userRoles(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	user.Roles = roles
	return user, nil
}

func (s *Store) userRoles(ctx context.Context, userID int64) ([]models.UserRole, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, object_id FROM user_role WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user roles: %w", err)
	}
	defer rows.Close()

	var roles []models.UserRole
	for rows.Next() {
		var r models.UserRole
		if err := rows.Scan(&r.Role, &r.ObjectID); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
