package models

// MenuItem is one catalog entry. The catalog is append-only.
type MenuItem struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}

// OrderItem snapshots a menu item at the time of ordering.
type OrderItem struct {
	ID          int64   `json:"id,omitempty"`
	MenuID      int64   `json:"menuId"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Order is an immutable record of a diner's purchase at a store.
type Order struct {
	ID          int64       `json:"id"`
	DinerID     int64       `json:"dinerId,omitempty"`
	FranchiseID int64       `json:"franchiseId"`
	StoreID     int64       `json:"storeId"`
	Date        string      `json:"date,omitempty"`
	Items       []OrderItem `json:"items"`
}

// OrderHistory is one page of a diner's past orders.
type OrderHistory struct {
	DinerID int64   `json:"dinerId"`
	Orders  []Order `json:"orders"`
	Page    int     `json:"page"`
}
