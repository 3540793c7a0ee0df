package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chu-duc-anh/imnovelteam/models"
	"github.com/chu-duc-anh/imnovelteam/repository"
	"github.com/chu-duc-anh/imnovelteam/websocket"
)

// SettingsHandler handles the themable site settings
type SettingsHandler struct {
	settingsRepo *repository.SettingsRepository
	wsHub        *websocket.Hub
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsRepo *repository.SettingsRepository, wsHub *websocket.Hub) *SettingsHandler {
	return &SettingsHandler{
		settingsRepo: settingsRepo,
		wsHub:        wsHub,
	}
}

// List returns every configured site setting
// GET /api/settings
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.settingsRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load settings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// Update creates or replaces one setting and pushes it to all connected
// clients (admin only)
// PUT /api/admin/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	setting := &models.SiteSetting{
		Key:       req.Key,
		Value:     req.Value,
		MediaType: req.MediaType,
	}
	if err := h.settingsRepo.Upsert(setting); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save setting",
		})
		return
	}

	h.wsHub.BroadcastSettingsUpdate(setting)

	c.JSON(http.StatusOK, gin.H{"setting": setting})
}
