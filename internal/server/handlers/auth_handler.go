package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
)

// AuthService is what the auth routes need from the auth service.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, models.User, error)
	Register(ctx context.Context, user models.User, password string) (models.User, error)
}

// AuthHandler serves login and account creation.
type AuthHandler struct {
	svc    AuthService
	logger *zap.Logger
}

// NewAuthHandler constructs the auth HTTP adapter.
func NewAuthHandler(svc AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{svc: svc, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createUserRequest struct {
	Username string      `json:"username" binding:"required"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role" binding:"required"`
	Phone    string      `json:"phone"`
	Password string      `json:"password" binding:"required"`
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login payload", zap.Error(err))
		respondError(c, h.logger, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	token, user, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me returns the caller as seen by the token.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser adds an account. Routed behind the admin role check.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid user payload", zap.Error(err))
		respondError(c, h.logger, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	user, err := h.svc.Register(c.Request.Context(), models.User{
		Username: req.Username,
		Name:     req.Name,
		Role:     req.Role,
		Phone:    req.Phone,
	}, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("user created", zap.String("username", user.Username), zap.String("actor", actor.Username))
	c.JSON(http.StatusCreated, user)
}
