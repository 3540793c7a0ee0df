package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chu-duc-anh/imnovelteam/middleware"
	"github.com/chu-duc-anh/imnovelteam/models"
	"github.com/chu-duc-anh/imnovelteam/repository"
)

// UserHandler handles public user listings and admin user management
type UserHandler struct {
	userRepo *repository.UserRepository
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo *repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// Leaderboard returns the top users by likes received
// GET /api/leaderboard?limit=...
func (h *UserHandler) Leaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	leaders, err := h.userRepo.GetLeaderboard(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load leaderboard",
		})
		return
	}
	if leaders == nil {
		leaders = []models.LeaderboardUser{}
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": leaders})
}

// List returns every account (admin only)
// GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load users",
		})
		return
	}
	if users == nil {
		users = []models.User{}
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateRole changes a user's role (admin only). Admins cannot demote
// themselves.
// PUT /api/admin/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	claims, _ := middleware.GetClaims(c)
	targetID := c.Param("id")
	if claims != nil && claims.UserID == targetID {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot change your own role",
		})
		return
	}

	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	if err := h.userRepo.UpdateRole(targetID, req.Role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update role",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

// UpdateAlly assigns or clears the contractor a user is an ally of
// (admin only)
// PUT /api/admin/users/:id/ally
func (h *UserHandler) UpdateAlly(c *gin.Context) {
	var req models.UpdateAllyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	if req.ContractorID != nil {
		contractor, err := h.userRepo.GetByID(*req.ContractorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check contractor",
			})
			return
		}
		if contractor == nil || contractor.Role != models.RoleContractor {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Ally target must be a contractor",
			})
			return
		}
	}

	if err := h.userRepo.UpdateAlly(c.Param("id"), req.ContractorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update ally",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ally updated"})
}
