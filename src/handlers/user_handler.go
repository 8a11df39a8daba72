package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/investidor2021/notas-corretagem/src/database"
	"github.com/investidor2021/notas-corretagem/src/logger"
	"github.com/investidor2021/notas-corretagem/src/model"
	"github.com/investidor2021/notas-corretagem/src/security"
	"github.com/investidor2021/notas-corretagem/src/utils"
)

type contextKey string

const userIDContextKey = contextKey("userID")

// GetUserIDFromContext extracts the authenticated user's id set by
// AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

type UserHandler struct {
	authService *security.AuthService
}

func NewUserHandler(authService *security.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || len(payload.Password) < 8 {
		utils.SendJSONError(w, "username is required and password must have at least 8 characters", http.StatusBadRequest)
		return
	}

	user := &model.User{Username: payload.Username}
	if err := user.HashPassword(payload.Password); err != nil {
		logger.L.Error("Failed to hash password", "error", err)
		utils.SendJSONError(w, "failed to register user", http.StatusInternalServerError)
		return
	}
	if err := user.CreateUser(database.DB); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			utils.SendJSONError(w, "username already taken", http.StatusConflict)
			return
		}
		logger.L.Error("Failed to create user", "username", payload.Username, "error", err)
		utils.SendJSONError(w, "failed to register user", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User registered", "userID", user.ID, "username", user.Username)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, strings.TrimSpace(payload.Username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			utils.SendJSONError(w, "invalid username or password", http.StatusUnauthorized)
			return
		}
		logger.L.Error("Failed to look up user", "error", err)
		utils.SendJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}
	if err := user.CheckPassword(payload.Password); err != nil {
		utils.SendJSONError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		logger.L.Error("Failed to generate token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": token,
		"user":         user,
	})
}

// AuthMiddleware validates the bearer token and stores the user id in the
// request context.
func (h *UserHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.L.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
			return
		}

		userIDStr, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			logger.L.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			logger.L.Error("AuthMiddleware: Invalid user ID format in token", "userIDStr", userIDStr, "error", err)
			utils.SendJSONError(w, "Invalid user ID in token", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
