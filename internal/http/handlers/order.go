package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/http/respond"
	"github.com/mewilker/jwt-pizza-service/internal/models"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// OrderHandler owns the menu catalog and diner order endpoints.
type OrderHandler struct {
	store storage.OrderStore
	log   *zap.Logger
}

// NewOrderHandler constructs the handler.
func NewOrderHandler(store storage.OrderStore, log *zap.Logger) *OrderHandler {
	return &OrderHandler{store: store, log: log}
}

// Register attaches order routes to the router.
func (h *OrderHandler) Register(r *mux.Router) {
	r.HandleFunc("/order/menu", h.handleGetMenu).Methods(http.MethodGet)
	r.HandleFunc("/order/menu", h.handleAddMenuItem).Methods(http.MethodPut)
	r.HandleFunc("/order", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/order", h.handleHistory).Methods(http.MethodGet)
}

func (h *OrderHandler) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.store.GetMenu(r.Context())
	if err != nil {
		h.log.Error("get menu failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to get menu")
		return
	}
	respond.JSON(w, http.StatusOK, menu)
}

// handleAddMenuItem appends a catalog item and responds with the whole
// updated menu.
func (h *OrderHandler) handleAddMenuItem(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.HasRole(models.RoleAdmin) {
		respond.Error(w, http.StatusForbidden, "unable to add menu item")
		return
	}

	var item models.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if item.Price < 0 {
		respond.Error(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	if _, err := h.store.AddMenuItem(r.Context(), item); err != nil {
		h.log.Error("add menu item failed", zap.String("title", item.Title), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to add menu item")
		return
	}

	menu, err := h.store.GetMenu(r.Context())
	if err != nil {
		h.log.Error("get menu failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to get menu")
		return
	}
	respond.JSON(w, http.StatusOK, menu)
}

type orderResponse struct {
	Order models.Order `json:"order"`
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.Authenticated() {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	created, err := h.store.AddDinerOrder(r.Context(), authz.UserID, order)
	if err != nil {
		h.log.Error("create order failed", zap.Int64("dinerId", authz.UserID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to create order")
		return
	}
	respond.JSON(w, http.StatusOK, orderResponse{Order: created})
}

func (h *OrderHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.Authenticated() {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page := intQuery(r, "page", 1)
	history, err := h.store.GetOrders(r.Context(), authz.UserID, page)
	if err != nil {
		h.log.Error("get orders failed", zap.Int64("dinerId", authz.UserID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to get orders")
		return
	}
	respond.JSON(w, http.StatusOK, history)
}
