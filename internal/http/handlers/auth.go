package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/http/respond"
	"github.com/mewilker/jwt-pizza-service/internal/middleware"
	"github.com/mewilker/jwt-pizza-service/internal/models"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// AuthStore is the persistence surface the auth endpoints need.
type AuthStore interface {
	storage.UserStore
	storage.TokenLedger
}

// AuthHandler owns register, login, logout, and profile update.
type AuthHandler struct {
	store  AuthStore
	tokens *auth.TokenManager
	log    *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store AuthStore, tokens *auth.TokenManager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, log: log}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/auth", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth", h.handleLogin).Methods(http.MethodPut)
	r.HandleFunc("/auth", h.handleLogout).Methods(http.MethodDelete)
	r.HandleFunc("/auth/{userId}", h.handleUpdate).Methods(http.MethodPut)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}

	user, err := h.store.AddUser(r.Context(), models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    []models.UserRole{{Role: models.RoleDiner}},
	})
	if err != nil {
		// Duplicate emails come back 500, not 409, matching the historical
		// behavior clients depend on.
		h.log.Warn("register failed", zap.String("email", req.Email), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to register user")
		return
	}

	h.issueToken(w, r, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("login failed", zap.String("email", req.Email), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to fetch user")
		return
	}

	h.issueToken(w, r, user)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if !authz.Authenticated() {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	token := middleware.BearerFromContext(r.Context())
	if err := h.store.LogoutUser(r.Context(), token); err != nil {
		h.log.Error("logout failed", zap.Int64("userId", authz.UserID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to log out")
		return
	}
	respond.Message(w, "logout successful")
}

type updateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
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
	if authz.UserID != userID && !authz.HasRole(models.RoleAdmin) {
		respond.Error(w, http.StatusForbidden, "unauthorized")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	user, err := h.store.UpdateUser(r.Context(), userID, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("update user failed", zap.Int64("userId", userID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to update user")
		return
	}

	h.issueToken(w, r, user)
}

// issueToken signs a fresh token for the user, records it in the ledger, and
// writes the standard {user, token} body.
func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, user models.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.Error("token generation failed", zap.Int64("userId", user.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	if err := h.store.LoginUser(r.Context(), user.ID, token); err != nil {
		h.log.Error("token ledger write failed", zap.Int64("userId", user.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "unable to log in")
		return
	}
	respond.JSON(w, http.StatusOK, authResponse{User: user, Token: token})
}
