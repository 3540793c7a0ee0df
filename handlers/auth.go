package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chu-duc-anh/imnovelteam/auth"
	"github.com/chu-duc-anh/imnovelteam/config"
	"github.com/chu-duc-anh/imnovelteam/middleware"
	"github.com/chu-duc-anh/imnovelteam/models"
	"github.com/chu-duc-anh/imnovelteam/repository"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	cfg        *config.Config
	jwtService *auth.JWTService
	userRepo   *repository.UserRepository
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, userRepo *repository.UserRepository) *AuthHandler {
	return &AuthHandler{
		cfg:        cfg,
		jwtService: auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpirationDays),
		userRepo:   userRepo,
	}
}

// GetJWTService returns the JWT service for use in middleware
func (h *AuthHandler) GetJWTService() *auth.JWTService {
	return h.jwtService
}

// Register creates a new account and logs it in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	username := strings.TrimSpace(req.Username)
	existing, err := h.userRepo.GetByUsername(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to check username",
		})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Username is already taken",
		})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create account",
		})
		return
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Race:         strings.TrimSpace(req.Race),
		Picture:      req.Picture,
	}
	if err := h.userRepo.Create(user); err != nil {
		log.Printf("Failed to create user %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create account",
		})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login authenticates a user by username and password
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	user, err := h.userRepo.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load user",
		})
		return
	}
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid username or password",
		})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	summary, err := h.userRepo.SummaryByID(user.ID)
	if err != nil || summary == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load profile",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": summary})
}

// ChangePassword replaces the authenticated user's password
// PUT /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Current password is incorrect",
		})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to change password",
		})
		return
	}

	if err := h.userRepo.UpdatePassword(user.ID, hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to change password",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

// respondWithToken issues a JWT for the user and returns it with the
// public profile
func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.jwtService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		log.Printf("Failed to generate JWT token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate authentication token",
		})
		return
	}

	summary, err := h.userRepo.SummaryByID(user.ID)
	if err != nil || summary == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load profile",
		})
		return
	}

	c.JSON(status, gin.H{
		"token": token,
		"user":  summary,
	})
}

// currentUser loads the full user record for the authenticated claims
func (h *AuthHandler) currentUser(c *gin.Context) (*models.User, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return nil, false
	}

	user, err := h.userRepo.GetByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load user",
		})
		return nil, false
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Account no longer exists",
		})
		return nil, false
	}
	return user, true
}
