package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/http/respond"
	"github.com/mewilker/jwt-pizza-service/internal/models"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// FranchiseHandler owns franchise and store management endpoints.
type FranchiseHandler struct {
	store storage.FranchiseStore
	log   *zap.Logger
}

// NewFranchiseHandler constructs the handler.
func NewFranchiseHandler(store storage.FranchiseStore, log *zap.Logger) *FranchiseHandler {
	return &FranchiseHandler{store: store, log: log}
}

// Register attaches franchise routes to the router.
func (h *FranchiseHandler) Register(r *mux.Router) {
	r.HandleFunc("/franchise", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/franchise", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/franchise/{userId:[0-9]+}", h.handleListForUser).Methods(http.MethodGet)
	r.HandleFunc("/franchise/{franchiseId:[0-9]+}", h.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/franchise/{franchiseId:[0-9]+}/store", h.handleCreateStore).Methods(http.MethodPost)
	r.HandleFunc("/franchise/{franchiseId:[0-9]+}/store/{storeId:[0-9]+}", h.handleDeleteStore).Methods(http.MethodDelete)
}

type franchiseList struct {
	Franchises []models.Franchise `json:"franchises"`
	More       bool               `json:"more"`
}

// handleList is open to unauthenticated callers; admin callers additionally
// see franchise admin lists.
func (h *FranchiseHandler) handleList(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	page := intQuery(r, "page", 1)
	limit := intQuery(r, "limit", 0)
	name := r.URL.Query().Get("name")

	franchises, more, err := h.store.GetFranchises(r.Context(), authz, page, limit, name)
	if err != nil {
		h.log.Error("list franchises failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to list franchises")
		return
	}
	respond.JSON(w, http.StatusOK, franchiseList{Franchises: franchises, More: more})
}

// handleListForUser returns the caller's franchises; querying someone else's
// yields an empty list unless the caller is an admin.
func (h *FranchiseHandler) handleListForUser(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.Authenticated() {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	franchises := []models.Franchise{}
	if authz.UserID == userID || authz.HasRole(models.RoleAdmin) {
		franchises, err = h.store.GetUserFranchises(r.Context(), userID)
		if err != nil {
			h.log.Error("list user franchises failed", zap.Int64("userId", userID), zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "unable to list franchises")
			return
		}
	}
	respond.JSON(w, http.StatusOK, franchises)
}

func (h *FranchiseHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.HasRole(models.RoleAdmin) {
		respond.Error(w, http.StatusForbidden, "unable to create a franchise")
		return
	}

	var franchise models.Franchise
	if err := json.NewDecoder(r.Body).Decode(&franchise); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	created, err := h.store.CreateFranchise(r.Context(), franchise)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, storage.ErrAlreadyExists):
			// Name conflicts have always surfaced as a plain server error.
			respond.Error(w, http.StatusInternalServerError, "franchise name already exists")
		default:
			h.log.Error("create franchise failed", zap.String("name", franchise.Name), zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "unable to create a franchise")
		}
		return
	}
	respond.JSON(w, http.StatusOK, created)
}

func (h *FranchiseHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.HasRole(models.RoleAdmin) {
		respond.Error(w, http.StatusForbidden, "unable to delete a franchise")
		return
	}
	franchiseID, err := strconv.ParseInt(mux.Vars(r)["franchiseId"], 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid franchise id")
		return
	}
	if err := h.store.DeleteFranchise(r.Context(), franchiseID); err != nil {
		h.log.Error("delete franchise failed", zap.Int64("franchiseId", franchiseID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to delete franchise")
		return
	}
	respond.Message(w, "franchise deleted")
}

func (h *FranchiseHandler) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.Authenticated() {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	franchiseID, err := strconv.ParseInt(mux.Vars(r)["franchiseId"], 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid franchise id")
		return
	}
	if !h.mayManageStores(w, r, authz, franchiseID, "unable to create a store") {
		return
	}

	var store models.Store
	if err := json.NewDecoder(r.Body).Decode(&store); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	created, err := h.store.CreateStore(r.Context(), franchiseID, store)
	if err != nil {
		h.log.Error("create store failed", zap.Int64("franchiseId", franchiseID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to create a store")
		return
	}
	respond.JSON(w, http.StatusOK, created)
}

func (h *FranchiseHandler) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.Authenticated() {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	vars := mux.Vars(r)
	franchiseID, err := strconv.ParseInt(vars["franchiseId"], 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid franchise id")
		return
	}
	storeID, err := strconv.ParseInt(vars["storeId"], 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid store id")
		return
	}
	if !h.mayManageStores(w, r, authz, franchiseID, "unable to delete a store") {
		return
	}

	if err := h.store.DeleteStore(r.Context(), franchiseID, storeID); err != nil {
		h.log.Error("delete store failed", zap.Int64("storeId", storeID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to delete a store")
		return
	}
	respond.Message(w, "store deleted")
}

// mayManageStores enforces the store-management policy: global admins, or
// franchise admins of this specific franchise. It writes the 403 itself and
// reports whether the caller may proceed. A missing franchise leaves the
// admin list empty, so non-admins fall out here while admins proceed and hit
// the foreign key, preserving the historical status codes.
func (h *FranchiseHandler) mayManageStores(w http.ResponseWriter, r *http.Request, authz auth.Context, franchiseID int64, denial string) bool {
	if authz.HasRole(models.RoleAdmin) {
		return true
	}
	franchise, err := h.store.GetFranchise(r.Context(), franchiseID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.log.Error("franchise lookup failed", zap.Int64("franchiseId", franchiseID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, denial)
		return false
	}
	for _, admin := range franchise.Admins {
		if admin.ID == authz.UserID {
			return true
		}
	}
	respond.Error(w, http.StatusForbidden, denial)
	return false
}

func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
