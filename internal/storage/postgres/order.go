package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mewilker/jwt-pizza-service/internal/models"
)

// GetMenu returns the full catalog in insertion order.
func (s *Store) GetMenu(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, image, price FROM menu ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get menu: %w", err)
	}
	defer rows.Close()

	menu := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Image, &item.Price); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		menu = append(menu, item)
	}
	return menu, rows.Err()
}

// AddMenuItem appends one item to the catalog.
func (s *Store) AddMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO menu (title, description, image, price) VALUES ($1, $2, $3, $4) RETURNING id`,
		item.Title, item.Description, item.Image, item.Price)
	if err := row.Scan(&item.ID); err != nil {
		return models.MenuItem{}, fmt.Errorf("add menu item: %w", err)
	}
	return item, nil
}

// AddDinerOrder writes the order row and one row per item atomically. Missing
// franchises, stores, or menu items fail the whole order via their foreign
// keys.
func (s *Store) AddDinerOrder(ctx context.Context, dinerID int64, order models.Order) (models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, fmt.Errorf("begin add order: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var date time.Time
	row := tx.QueryRowContext(ctx,
		`INSERT INTO diner_order (diner_id, franchise_id, store_id) VALUES ($1, $2, $3) RETURNING id, date`,
		dinerID, order.FranchiseID, order.StoreID)
	if err := row.Scan(&id, &date); err != nil {
		if isForeignKeyViolation(err) {
			return models.Order{}, fmt.Errorf("add order: unknown franchise or store")
		}
		return models.Order{}, fmt.Errorf("add order: %w", err)
	}

	items := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO order_item (order_id, menu_id, description, price) VALUES ($1, $2, $3, $4) RETURNING id`,
			id, item.MenuID, item.Description, item.Price)
		if err := row.Scan(&item.ID); err != nil {
			if isForeignKeyViolation(err) {
				return models.Order{}, fmt.Errorf("add order item: unknown menu item %d", item.MenuID)
			}
			return models.Order{}, fmt.Errorf("add order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(); err != nil {
		return models.Order{}, fmt.Errorf("commit add order: %w", err)
	}

	order.ID = id
	order.DinerID = dinerID
	order.Date = date.Format(time.RFC3339)
	order.Items = items
	return order, nil
}

// GetOrders returns one fixed-size page of the diner's order history, newest
// first.
func (s *Store) GetOrders(ctx context.Context, dinerID int64, page int) (models.OrderHistory, error) {
	if page < 1 {
		page = 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, franchise_id, store_id, date FROM diner_order
		 WHERE diner_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		dinerID, s.listPerPage, getOffset(page, s.listPerPage))
	if err != nil {
		return models.OrderHistory{}, fmt.Errorf("get orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		var date time.Time
		if err := rows.Scan(&o.ID, &o.FranchiseID, &o.StoreID, &date); err != nil {
			return models.OrderHistory{}, fmt.Errorf("scan order: %w", err)
		}
		o.Date = date.Format(time.RFC3339)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return models.OrderHistory{}, fmt.Errorf("get orders: %w", err)
	}

	for i := range orders {
		items, err := s.orderItems(ctx, orders[i].ID)
		if err != nil {
			return models.OrderHistory{}, err
		}
		orders[i].Items = items
	}

	return models.OrderHistory{DinerID: dinerID, Orders: orders, Page: page}, nil
}

func (s *Store) orderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, menu_id, description, price FROM order_item WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.MenuID, &item.Description, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
