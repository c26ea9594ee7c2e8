package storage

import (
	"context"
	"errors"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// NotFoundError carries a caller-facing message while still matching
// ErrNotFound under errors.Is.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UserStore captures user persistence operations.
type UserStore interface {
	// AddUser hashes the password and persists the user plus one role
	// assignment per role. Franchisee roles name their franchise, which must
	// exist.
	AddUser(ctx context.Context, user models.User) (models.User, error)
	// GetUser looks a user up by email. A non-empty password is verified
	// against the stored digest; a mismatch reports ErrNotFound. The returned
	// user never carries the password field.
	GetUser(ctx context.Context, email, password string) (models.User, error)
	// UpdateUser changes any of name, email, password that are non-empty.
	UpdateUser(ctx context.Context, userID int64, name, email, password string) (models.User, error)
}

// TokenLedger records which token signatures are active.
type TokenLedger interface {
	LoginUser(ctx context.Context, userID int64, token string) error
	IsLoggedIn(ctx context.Context, token string) (bool, error)
	// LogoutUser revokes the token's signature. Revoking an unknown signature
	// is not an error.
	LogoutUser(ctx context.Context, token string) error
}

// FranchiseStore captures franchise and store persistence operations.
type FranchiseStore interface {
	// CreateFranchise resolves every admin email to an existing user, then
	// writes the franchise row and one franchisee role per admin atomically.
	CreateFranchise(ctx context.Context, franchise models.Franchise) (models.Franchise, error)
	// DeleteFranchise removes the franchise, its stores, and the franchisee
	// roles referencing it as one transaction.
	DeleteFranchise(ctx context.Context, franchiseID int64) error
	// GetFranchises pages through franchises matching the name filter
	// ('*' wildcard). Admin lists are attached only for admin callers. The
	// second result reports whether a further page exists.
	GetFranchises(ctx context.Context, authz auth.Context, page, limit int, nameFilter string) ([]models.Franchise, bool, error)
	// GetUserFranchises lists the franchises the user administers.
	GetUserFranchises(ctx context.Context, userID int64) ([]models.Franchise, error)
	// GetFranchise returns the franchise with admins and stores populated.
	GetFranchise(ctx context.Context, franchiseID int64) (models.Franchise, error)
	CreateStore(ctx context.Context, franchiseID int64, store models.Store) (models.Store, error)
	DeleteStore(ctx context.Context, franchiseID, storeID int64) error
}

// OrderStore captures menu and order persistence operations.
type OrderStore interface {
	GetMenu(ctx context.Context) ([]models.MenuItem, error)
	AddMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error)
	// AddDinerOrder writes the order row and its items atomically.
	AddDinerOrder(ctx context.Context, dinerID int64, order models.Order) (models.Order, error)
	// GetOrders returns one fixed-size page of the diner's order history,
	// newest first.
	GetOrders(ctx context.Context, dinerID int64, page int) (models.OrderHistory, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	UserStore
	TokenLedger
	FranchiseStore
	OrderStore
}
