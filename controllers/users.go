package controllers

import (
	"dm-chat/auth"
	"dm-chat/domain"
	"dm-chat/middleware"
	"dm-chat/services"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type UserController struct {
	auth *services.AuthService
	log  *slog.Logger
}

func NewUserController(authService *services.AuthService, log *slog.Logger) *UserController {
	return &UserController{auth: authService, log: log}
}

// Register handles POST /register.
func (uc *UserController) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	user, err := uc.auth.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, services.ToUserPayload(user))
}

// Login handles POST /login with form credentials, issuing an access
// and a refresh token.
func (uc *UserController) Login(c *gin.Context) {
	pair, err := uc.auth.Login(auth.LoginRequest{
		Email:    c.PostForm("username"),
		Password: c.PostForm("password"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh handles POST /refresh: a valid refresh token in the bearer
// header buys a fresh access token.
func (uc *UserController) Refresh(c *gin.Context) {
	token, found := middleware.BearerToken(c.GetHeader("Authorization"))
	if !found {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
		return
	}

	access, err := uc.auth.Refresh(token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access, "token_type": "bearer"})
}

// List handles GET /users, returning everyone except the caller.
func (uc *UserController) List(c *gin.Context) {
	users, err := uc.auth.ListUsers(middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(users, func(u domain.User, _ int) services.UserPayload {
		return services.ToUserPayload(u)
	}))
}
