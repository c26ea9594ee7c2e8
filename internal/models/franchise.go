package models

// Franchise groups stores under a name and a set of admin users. Admins are
// only attached for privileged callers.
type Franchise struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Admins []User  `json:"admins,omitempty"`
	Stores []Store `json:"stores"`
}

// Store is a single location belonging to a franchise. TotalRevenue is an
// aggregate over the store's order items, populated on detail views.
type Store struct {
	ID           int64   `json:"id"`
	FranchiseID  int64   `json:"franchiseId,omitempty"`
	Name         string  `json:"name"`
	TotalRevenue float64 `json:"totalRevenue,omitempty"`
}
