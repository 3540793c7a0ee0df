package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chu-duc-anh/imnovelteam/middleware"
	"github.com/chu-duc-anh/imnovelteam/models"
	"github.com/chu-duc-anh/imnovelteam/repository"
	"github.com/chu-duc-anh/imnovelteam/services"
	"github.com/chu-duc-anh/imnovelteam/websocket"
)

// ChatHandler handles the support chat endpoints
type ChatHandler struct {
	chatRepo     *repository.ChatRepository
	userRepo     *repository.UserRepository
	quotaService *services.QuotaService
	wsHub        *websocket.Hub
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatRepo *repository.ChatRepository, userRepo *repository.UserRepository, quotaService *services.QuotaService, wsHub *websocket.Hub) *ChatHandler {
	return &ChatHandler{
		chatRepo:     chatRepo,
		userRepo:     userRepo,
		quotaService: quotaService,
		wsHub:        wsHub,
	}
}

// GetThreads returns the viewer's support conversations with the total
// unread count. Admins see every thread, newest activity first; a regular
// user sees at most their own thread.
// GET /api/chats
func (h *ChatHandler) GetThreads(c *gin.Context) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return
	}

	var threads []models.ChatThread
	if viewer.IsAdmin() {
		all, err := h.chatRepo.ListThreads()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load threads",
			})
			return
		}
		threads = services.SortThreadsByRecency(all)
	} else {
		thread, err := h.chatRepo.GetThreadForUser(viewer.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load thread",
			})
			return
		}
		threads = []models.ChatThread{}
		if thread != nil {
			threads = append(threads, *thread)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"threads":      threads,
		"total_unread": services.TotalUnreadForViewer(threads, viewer),
	})
}

// GetThread returns one conversation with its messages grouped into
// consecutive same-sender blocks for rendering. The :id parameter is the
// thread's user id.
// GET /api/chats/:id
func (h *ChatHandler) GetThread(c *gin.Context) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return
	}

	threadUserID := c.Param("id")
	if !viewer.IsAdmin() && threadUserID != viewer.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Not allowed to read this thread",
		})
		return
	}

	thread, err := h.chatRepo.GetThreadForUser(threadUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load thread",
		})
		return
	}
	if thread == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Thread not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thread": thread,
		"blocks": services.GroupIntoBlocks(thread.Messages),
		"unread": services.UnreadCountForThread(*thread, viewer.ChatIdentity()),
	})
}

// Send posts a new chat message. Regular users always message the admin
// pseudo-user and consume their daily quota; admins pick the receiver and
// are exempt.
// POST /api/chats
func (h *ChatHandler) Send(c *gin.Context) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.SendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Message cannot be empty",
		})
		return
	}

	senderID := viewer.ChatIdentity()
	receiverID := models.AdminUserID
	if viewer.IsAdmin() {
		if req.ReceiverID == "" || req.ReceiverID == models.AdminUserID {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Receiver is required",
			})
			return
		}
		receiver, err := h.userRepo.GetByID(req.ReceiverID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check receiver",
			})
			return
		}
		if receiver == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Receiver not found",
			})
			return
		}
		receiverID = receiver.ID
	}

	allowed, err := h.quotaService.CanSend(viewer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to check message quota",
		})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Daily message limit reached",
		})
		return
	}

	msg := &models.ChatMessage{
		Sender:     models.SenderRef{ID: senderID},
		ReceiverID: receiverID,
		Text:       text,
	}
	if err := h.chatRepo.Create(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to send message",
		})
		return
	}

	if senderID != models.AdminUserID {
		msg.Sender.Username = viewer.Username
		msg.Sender.Picture = viewer.Picture
	}

	// The thread lives under the non-admin participant
	threadUserID := senderID
	if threadUserID == models.AdminUserID {
		threadUserID = receiverID
	}
	h.wsHub.BroadcastChatMessage(threadUserID, *msg)

	quota, err := h.quotaService.RemainingFor(viewer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to refresh quota",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msg,
		"quota":   quota,
	})
}

// MarkRead marks every message addressed to the viewer in the thread as
// read. The :id parameter is the thread's user id.
// PUT /api/chats/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return
	}

	threadUserID := c.Param("id")
	if !viewer.IsAdmin() && threadUserID != viewer.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Not allowed to read this thread",
		})
		return
	}

	// The counterpart's outgoing messages become read
	senderID := models.AdminUserID
	if viewer.IsAdmin() {
		senderID = threadUserID
	}
	if err := h.chatRepo.MarkRead(senderID, viewer.ChatIdentity()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to mark thread read",
		})
		return
	}

	h.wsHub.BroadcastThreadRead(threadUserID, viewer.ChatIdentity())

	c.JSON(http.StatusOK, gin.H{"message": "Thread marked read"})
}

// DeleteThread removes a conversation entirely (admin only)
// DELETE /api/admin/chats/:id
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	if err := h.chatRepo.DeleteThread(c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Thread not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete thread",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Thread deleted"})
}

// GetLimit reports the viewer's remaining daily message allowance
// GET /api/chats/limit
func (h *ChatHandler) GetLimit(c *gin.Context) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return
	}

	quota, err := h.quotaService.RemainingFor(viewer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to compute quota",
		})
		return
	}

	c.JSON(http.StatusOK, quota)
}

// currentUser loads the full user record for the authenticated claims
func (h *ChatHandler) currentUser(c *gin.Context) (*models.User, bool) {
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
