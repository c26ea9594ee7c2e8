package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/models"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// fakeStore is an in-memory storage.Store with the same observable semantics
// as the Postgres implementation, including role scoping and cascade deletes.
// Passwords are kept in plaintext; hashing is covered by the auth package
// tests.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]models.User
	passwords  map[int64]string
	emails     map[string]int64
	roles      []roleRow
	franchises map[int64]string
	stores     map[int64]storeRow
	menu       []models.MenuItem
	orders     []models.Order
	ledger     map[string]int64
}

type roleRow struct {
	userID   int64
	role     models.Role
	objectID int64
}

type storeRow struct {
	id          int64
	franchiseID int64
	name        string
}

var _ storage.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]models.User{},
		passwords:  map[int64]string{},
		emails:     map[string]int64{},
		franchises: map[int64]string{},
		stores:     map[int64]storeRow{},
		ledger:     map[string]int64{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) AddUser(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.emails[user.Email]; exists {
		return models.User{}, fmt.Errorf("add user %s: %w", user.Email, storage.ErrAlreadyExists)
	}
	id := f.id()
	roles := make([]models.UserRole, 0, len(user.Roles))
	for _, r := range user.Roles {
		objectID := int64(0)
		if r.Role == models.RoleFranchisee {
			found := false
			for fid, name := range f.franchises {
				if name == r.Object {
					objectID, found = fid, true
					break
				}
			}
			if !found {
				return models.User{}, &storage.NotFoundError{Msg: fmt.Sprintf("unknown franchise %s provided for role", r.Object)}
			}
		}
		f.roles = append(f.roles, roleRow{userID: id, role: r.Role, objectID: objectID})
		roles = append(roles, models.UserRole{Role: r.Role, ObjectID: objectID})
	}
	stored := models.User{ID: id, Name: user.Name, Email: user.Email, Roles: roles}
	f.users[id] = stored
	f.passwords[id] = user.Password
	f.emails[user.Email] = id
	return stored, nil
}

func (f *fakeStore) GetUser(_ context.Context, email, password string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.emails[email]
	if !ok {
		return models.User{}, &storage.NotFoundError{Msg: "unknown user"}
	}
	if password != "" && f.passwords[id] != password {
		return models.User{}, &storage.NotFoundError{Msg: "unknown user"}
	}
	return f.userLocked(id), nil
}

func (f *fakeStore) UpdateUser(_ context.Context, userID int64, name, email, password string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return models.User{}, &storage.NotFoundError{Msg: "unknown user"}
	}
	if name != "" {
		user.Name = name
	}
	if email != "" {
		delete(f.emails, user.Email)
		user.Email = email
		f.emails[email] = userID
	}
	if password != "" {
		f.passwords[userID] = password
	}
	f.users[userID] = user
	return f.userLocked(userID), nil
}

func (f *fakeStore) userLocked(id int64) models.User {
	user := f.users[id]
	user.Roles = nil
	for _, r := range f.roles {
		if r.userID == id {
			user.Roles = append(user.Roles, models.UserRole{Role: r.role, ObjectID: r.objectID})
		}
	}
	return user
}

func (f *fakeStore) LoginUser(_ context.Context, userID int64, token string) error {
	sig := auth.TokenSignature(token)
	if sig == "" {
		return errors.New("token has no signature")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger[sig] = userID
	return nil
}

func (f *fakeStore) IsLoggedIn(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ledger[auth.TokenSignature(token)]
	return ok, nil
}

func (f *fakeStore) LogoutUser(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ledger, auth.TokenSignature(token))
	return nil
}

func (f *fakeStore) CreateFranchise(_ context.Context, franchise models.Franchise) (models.Franchise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range f.franchises {
		if name == franchise.Name {
			return models.Franchise{}, fmt.Errorf("franchise %s: %w", franchise.Name, storage.ErrAlreadyExists)
		}
	}
	admins := make([]models.User, 0, len(franchise.Admins))
	for _, admin := range franchise.Admins {
		id, ok := f.emails[admin.Email]
		if !ok {
			return models.Franchise{}, &storage.NotFoundError{
				Msg: fmt.Sprintf("unknown user for franchise admin %s provided", admin.Email),
			}
		}
		u := f.users[id]
		admins = append(admins, models.User{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	id := f.id()
	f.franchises[id] = franchise.Name
	for _, admin := range admins {
		f.roles = append(f.roles, roleRow{userID: admin.ID, role: models.RoleFranchisee, objectID: id})
	}
	return models.Franchise{ID: id, Name: franchise.Name, Admins: admins, Stores: []models.Store{}}, nil
}

func (f *fakeStore) DeleteFranchise(_ context.Context, franchiseID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, st := range f.stores {
		if st.franchiseID == franchiseID {
			delete(f.stores, id)
		}
	}
	kept := f.roles[:0]
	for _, r := range f.roles {
		if !(r.role == models.RoleFranchisee && r.objectID == franchiseID) {
			kept = append(kept, r)
		}
	}
	f.roles = kept
	delete(f.franchises, franchiseID)
	return nil
}

func (f *fakeStore) GetFranchises(_ context.Context, authz auth.Context, page, limit int, nameFilter string) ([]models.Franchise, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}

	ids := make([]int64, 0, len(f.franchises))
	for id, name := range f.franchises {
		if wildcardMatch(name, nameFilter) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	offset := (page - 1) * limit
	if offset > len(ids) {
		offset = len(ids)
	}
	end := offset + limit
	more := end < len(ids)
	if end > len(ids) {
		end = len(ids)
	}

	isAdmin := authz.HasRole(models.RoleAdmin)
	franchises := []models.Franchise{}
	for _, id := range ids[offset:end] {
		fr := f.franchiseLocked(id)
		if !isAdmin {
			fr.Admins = nil
		}
		franchises = append(franchises, fr)
	}
	return franchises, more, nil
}

func (f *fakeStore) GetUserFranchises(_ context.Context, userID int64) ([]models.Franchise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	franchises := []models.Franchise{}
	for _, r := range f.roles {
		if r.userID == userID && r.role == models.RoleFranchisee {
			if _, ok := f.franchises[r.objectID]; ok {
				franchises = append(franchises, f.franchiseLocked(r.objectID))
			}
		}
	}
	return franchises, nil
}

func (f *fakeStore) GetFranchise(_ context.Context, franchiseID int64) (models.Franchise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.franchises[franchiseID]; !ok {
		return models.Franchise{}, &storage.NotFoundError{Msg: "unknown franchise"}
	}
	return f.franchiseLocked(franchiseID), nil
}

func (f *fakeStore) franchiseLocked(id int64) models.Franchise {
	fr := models.Franchise{ID: id, Name: f.franchises[id], Stores: []models.Store{}}
	for _, r := range f.roles {
		if r.role == models.RoleFranchisee && r.objectID == id {
			u := f.users[r.userID]
			fr.Admins = append(fr.Admins, models.User{ID: u.ID, Name: u.Name, Email: u.Email})
		}
	}
	storeIDs := []int64{}
	for sid, st := range f.stores {
		if st.franchiseID == id {
			storeIDs = append(storeIDs, sid)
		}
	}
	sort.Slice(storeIDs, func(i, j int) bool { return storeIDs[i] < storeIDs[j] })
	for _, sid := range storeIDs {
		st := f.stores[sid]
		revenue := 0.0
		for _, o := range f.orders {
			if o.StoreID == sid {
				for _, item := range o.Items {
					revenue += item.Price
				}
			}
		}
		fr.Stores = append(fr.Stores, models.Store{ID: sid, Name: st.name, TotalRevenue: revenue})
	}
	return fr
}

func (f *fakeStore) CreateStore(_ context.Context, franchiseID int64, store models.Store) (models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.franchises[franchiseID]; !ok {
		return models.Store{}, fmt.Errorf("create store: franchise %d does not exist", franchiseID)
	}
	id := f.id()
	f.stores[id] = storeRow{id: id, franchiseID: franchiseID, name: store.Name}
	return models.Store{ID: id, FranchiseID: franchiseID, Name: store.Name}, nil
}

func (f *fakeStore) DeleteStore(_ context.Context, franchiseID, storeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.stores[storeID]; ok && st.franchiseID == franchiseID {
		delete(f.stores, storeID)
	}
	return nil
}

func (f *fakeStore) GetMenu(_ context.Context) ([]models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	menu := make([]models.MenuItem, len(f.menu))
	copy(menu, f.menu)
	return menu, nil
}

func (f *fakeStore) AddMenuItem(_ context.Context, item models.MenuItem) (models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.id()
	f.menu = append(f.menu, item)
	return item, nil
}

func (f *fakeStore) AddDinerOrder(_ context.Context, dinerID int64, order models.Order) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.franchises[order.FranchiseID]; !ok {
		return models.Order{}, errors.New("add order: unknown franchise or store")
	}
	st, ok := f.stores[order.StoreID]
	if !ok || st.franchiseID != order.FranchiseID {
		return models.Order{}, errors.New("add order: unknown franchise or store")
	}
	for i := range order.Items {
		found := false
		for _, m := range f.menu {
			if m.ID == order.Items[i].MenuID {
				found = true
				break
			}
		}
		if !found {
			return models.Order{}, fmt.Errorf("add order item: unknown menu item %d", order.Items[i].MenuID)
		}
		order.Items[i].ID = f.id()
	}
	order.ID = f.id()
	order.DinerID = dinerID
	order.Date = time.Now().UTC().Format(time.RFC3339)
	f.orders = append(f.orders, order)
	return order, nil
}

func (f *fakeStore) GetOrders(_ context.Context, dinerID int64, page int) (models.OrderHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page < 1 {
		page = 1
	}
	mine := []models.Order{}
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].DinerID == dinerID {
			mine = append(mine, f.orders[i])
		}
	}
	const perPage = 10
	offset := (page - 1) * perPage
	if offset > len(mine) {
		offset = len(mine)
	}
	end := offset + perPage
	if end > len(mine) {
		end = len(mine)
	}
	return models.OrderHistory{DinerID: dinerID, Orders: mine[offset:end], Page: page}, nil
}

func wildcardMatch(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	parts := strings.Split(pattern, "*")
	rest := name
	for i, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		if i == 0 && idx != 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	if last := parts[len(parts)-1]; last != "" && !strings.HasSuffix(name, last) {
		return false
	}
	return true
}
