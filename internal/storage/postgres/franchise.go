package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/models"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// CreateFranchise resolves every admin email, inserts the franchise row, and
// grants each admin a franchisee role scoped to it, all in one transaction.
func (s *Store) CreateFranchise(ctx context.Context, franchise models.Franchise) (models.Franchise, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Franchise{}, fmt.Errorf("begin create franchise: %w", err)
	}
	defer tx.Rollback()

	admins := make([]models.User, 0, len(franchise.Admins))
	for _, admin := range franchise.Admins {
		var u models.User
		row := tx.QueryRowContext(ctx,
			`SELECT id, name, email FROM users WHERE email = $1`, admin.Email)
		if err := row.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.Franchise{}, &storage.NotFoundError{
					Msg: fmt.Sprintf("unknown user for franchise admin %s provided", admin.Email),
				}
			}
			return models.Franchise{}, fmt.Errorf("resolve franchise admin: %w", err)
		}
		admins = append(admins, u)
	}

	var id int64
	row := tx.QueryRowContext(ctx,
		`INSERT INTO franchise (name) VALUES ($1) RETURNING id`, franchise.Name)
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return models.Franchise{}, fmt.Errorf("franchise %s: %w", franchise.Name, storage.ErrAlreadyExists)
		}
		return models.Franchise{}, fmt.Errorf("insert franchise: %w", err)
	}

	for _, admin := range admins {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_role (user_id, role, object_id) VALUES ($1, $2, $3)`,
			admin.ID, models.RoleFranchisee, id); err != nil {
			return models.Franchise{}, fmt.Errorf("grant franchisee role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Franchise{}, fmt.Errorf("commit create franchise: %w", err)
	}

	franchise.ID = id
	franchise.Admins = admins
	franchise.Stores = []models.Store{}
	return franchise, nil
}

// DeleteFranchise removes the franchise together with its stores and the
// franchisee roles referencing it. Partial deletion is never observable.
func (s *Store) DeleteFranchise(ctx context.Context, franchiseID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete franchise: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM store WHERE franchise_id = $1`, franchiseID); err != nil {
		return fmt.Errorf("delete franchise stores: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_role WHERE role = $1 AND object_id = $2`,
		models.RoleFranchisee, franchiseID); err != nil {
		return fmt.Errorf("delete franchisee roles: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM franchise WHERE id = $1`, franchiseID); err != nil {
		return fmt.Errorf("delete franchise: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete franchise: %w", err)
	}
	return nil
}

// GetFranchises pages through franchises matching the name filter. Admin
// callers get the fully hydrated view (admins, store revenue); everyone else
// gets names and bare store lists. An extra row is fetched past the page to
// detect whether more pages exist.
func (s *Store) GetFranchises(ctx context.Context, authz auth.Context, page, limit int, nameFilter string) ([]models.Franchise, bool, error) {
	if limit <= 0 {
		limit = s.listPerPage
	}
	if nameFilter == "" {
		nameFilter = "*"
	}
	pattern := strings.ReplaceAll(nameFilter, "*", "%")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM franchise WHERE name LIKE $1 ORDER BY id LIMIT $2 OFFSET $3`,
		pattern, limit+1, getOffset(page, limit))
	if err != nil {
		return nil, false, fmt.Errorf("list franchises: %w", err)
	}
	defer rows.Close()

	franchises := []models.Franchise{}
	for rows.Next() {
		var f models.Franchise
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, false, fmt.Errorf("scan franchise: %w", err)
		}
		franchises = append(franchises, f)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("list franchises: %w", err)
	}

	more := len(franchises) > limit
	if more {
		franchises = franchises[:limit]
	}

	isAdmin := authz.HasRole(models.RoleAdmin)
	for i := range franchises {
		if isAdmin {
			full, err := s.GetFranchise(ctx, franchises[i].ID)
			if err != nil {
				return nil, false, err
			}
			franchises[i] = full
			continue
		}
		stores, err := s.franchiseStores(ctx, franchises[i].ID, false)
		if err != nil {
			return nil, false, err
		}
		franchises[i].Stores = stores
	}
	return franchises, more, nil
}

// GetUserFranchises lists the franchises where the user holds a franchisee
// role, fully hydrated. Users with no franchises get an empty list.
func (s *Store) GetUserFranchises(ctx context.Context, userID int64) ([]models.Franchise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_id FROM user_role WHERE role = $1 AND user_id = $2`,
		models.RoleFranchisee, userID)
	if err != nil {
		return nil, fmt.Errorf("list user franchises: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan franchise id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user franchises: %w", err)
	}

	franchises := []models.Franchise{}
	for _, id := range ids {
		f, err := s.GetFranchise(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		franchises = append(franchises, f)
	}
	return franchises, nil
}

// GetFranchise returns the franchise with its admin users and stores
// (including per-store revenue) populated.
func (s *Store) GetFranchise(ctx context.Context, franchiseID int64) (models.Franchise, error) {
	var f models.Franchise
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM franchise WHERE id = $1`, franchiseID)
	if err := row.Scan(&f.ID, &f.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Franchise{}, &storage.NotFoundError{Msg: "unknown franchise"}
		}
		return models.Franchise{}, fmt.Errorf("get franchise: %w", err)
	}

	admins, err := s.franchiseAdmins(ctx, franchiseID)
	if err != nil {
		return models.Franchise{}, err
	}
	stores, err := s.franchiseStores(ctx, franchiseID, true)
	if err != nil {
		return models.Franchise{}, err
	}
	f.Admins = admins
	f.Stores = stores
	return f, nil
}

// CreateStore inserts a store under the franchise. A nonexistent franchise
// surfaces the foreign key violation to the caller.
func (s *Store) CreateStore(ctx context.Context, franchiseID int64, store models.Store) (models.Store, error) {
	var id int64
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO store (franchise_id, name) VALUES ($1, $2) RETURNING id`,
		franchiseID, store.Name)
	if err := row.Scan(&id); err != nil {
		if isForeignKeyViolation(err) {
			return models.Store{}, fmt.Errorf("create store: franchise %d does not exist", franchiseID)
		}
		return models.Store{}, fmt.Errorf("create store: %w", err)
	}
	return models.Store{ID: id, FranchiseID: franchiseID, Name: store.Name}, nil
}

// DeleteStore removes exactly the store matching both ids.
func (s *Store) DeleteStore(ctx context.Context, franchiseID, storeID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM store WHERE franchise_id = $1 AND id = $2`,
		franchiseID, storeID); err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return nil
}

func (s *Store) franchiseAdmins(ctx context.Context, franchiseID int64) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email
		 FROM user_role ur JOIN users u ON u.id = ur.user_id
		 WHERE ur.role = $1 AND ur.object_id = $2
		 ORDER BY u.id`,
		models.RoleFranchisee, franchiseID)
	if err != nil {
		return nil, fmt.Errorf("get franchise admins: %w", err)
	}
	defer rows.Close()

	admins := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan franchise admin: %w", err)
		}
		admins = append(admins, u)
	}
	return admins, rows.Err()
}

func (s *Store) franchiseStores(ctx context.Context, franchiseID int64, withRevenue bool) ([]models.Store, error) {
	query := `SELECT id, name FROM store WHERE franchise_id = $1 ORDER BY id`
	if withRevenue {
		query = `SELECT s.id, s.name, COALESCE(SUM(oi.price), 0) AS total_revenue
			 FROM store s
			 LEFT JOIN diner_order o ON o.store_id = s.id
			 LEFT JOIN order_item oi ON oi.order_id = o.id
			 WHERE s.franchise_id = $1
			 GROUP BY s.id, s.name
			 ORDER BY s.id`
	}

	rows, err := s.db.QueryContext(ctx, query, franchiseID)
	if err != nil {
		return nil, fmt.Errorf("get franchise stores: %w", err)
	}
	defer rows.Close()

	stores := []models.Store{}
	for rows.Next() {
		var st models.Store
		if withRevenue {
			err = rows.Scan(&st.ID, &st.Name, &st.TotalRevenue)
		} else {
			err = rows.Scan(&st.ID, &st.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}
