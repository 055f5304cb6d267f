// Package handlers contains the gin handlers of the dashboard API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/models"
	"github.com/podboard/backend/services"
	"go.uber.org/zap"
)

// AuthHandler serves login and user management.
type AuthHandler struct {
	users *services.UserService
	log   *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *services.UserService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{users: users, log: log}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type CreateUserRequest struct {
	Username string      `json:"username" binding:"required,max=64"`
	Password string      `json:"password" binding:"required,min=6,max=128"`
	Role     models.Role `json:"role" binding:"omitempty,oneof=admin user"`
}

type UpdateUserRequest struct {
	Password *string      `json:"password" binding:"omitempty,min=6,max=128"`
	Role     *models.Role `json:"role" binding:"omitempty,oneof=admin user"`
}

// Login handles user authentication
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

// Me returns the principal the request was authenticated as
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		writeError(c, h.log, auth.ErrInvalidToken)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListUsers returns all users, oldest first
// GET /api/auth/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser adds a user
// POST /api/auth/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	var caller *auth.Principal
	if p, ok := auth.PrincipalFrom(c.Request.Context()); ok {
		caller = &p
	}

	user, err := h.users.CreateUser(c.Request.Context(), caller, services.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser changes another user's password and/or role
// PATCH /api/auth/users/:id
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	caller, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		writeError(c, h.log, auth.ErrInvalidToken)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), caller, id, services.UpdateUserInput{
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser removes another user
// DELETE /api/auth/users/:id
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	caller, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		writeError(c, h.log, auth.ErrInvalidToken)
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), caller, id); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func userID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidUserID})
		return 0, false
	}
	return uint(id), true
}
