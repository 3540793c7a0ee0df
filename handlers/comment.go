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

// CommentHandler handles comment endpoints
type CommentHandler struct {
	commentRepo *repository.CommentRepository
	storyRepo   *repository.StoryRepository
	userRepo    *repository.UserRepository
	wsHub       *websocket.Hub
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentRepo *repository.CommentRepository, storyRepo *repository.StoryRepository, userRepo *repository.UserRepository, wsHub *websocket.Hub) *CommentHandler {
	return &CommentHandler{
		commentRepo: commentRepo,
		storyRepo:   storyRepo,
		userRepo:    userRepo,
		wsHub:       wsHub,
	}
}

// List returns the comment tree of a story or chapter, annotated for the
// viewer when one is authenticated
// GET /api/stories/:id/comments?chapter_id=...
func (h *CommentHandler) List(c *gin.Context) {
	story, ok := h.loadStory(c)
	if !ok {
		return
	}

	var chapterID *string
	if value := c.Query("chapter_id"); value != "" {
		chapterID = &value
	}

	comments, err := h.commentRepo.ListForStory(story.ID, chapterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load comments",
		})
		return
	}

	viewer := h.optionalViewer(c)
	tree := services.BuildCommentTree(comments, viewer, story.Creator.ID)

	c.JSON(http.StatusOK, gin.H{"comments": tree})
}

// Create posts a new comment or reply
// POST /api/stories/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	story, ok := h.loadStory(c)
	if !ok {
		return
	}

	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Comment cannot be empty",
		})
		return
	}

	// A reply must point at an existing comment on the same story and
	// chapter
	if req.ParentID != nil {
		parent, err := h.commentRepo.GetByID(*req.ParentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check parent comment",
			})
			return
		}
		if parent == nil || parent.StoryID != story.ID {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Parent comment does not exist",
			})
			return
		}
	}

	comment := &models.Comment{
		StoryID:   story.ID,
		ChapterID: req.ChapterID,
		Text:      text,
		ParentID:  req.ParentID,
	}
	if err := h.commentRepo.Create(comment, claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create comment",
		})
		return
	}

	created, err := h.commentRepo.GetByID(comment.ID)
	if err != nil || created == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve comment",
		})
		return
	}

	h.wsHub.BroadcastCommentAdded(created)

	c.JSON(http.StatusCreated, gin.H{"comment": created})
}

// ToggleLike flips the viewer's like on a comment
// POST /api/comments/:id/like
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	if err := h.commentRepo.ToggleLike(c.Param("id"), claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Comment not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to toggle like",
		})
		return
	}

	comment, err := h.commentRepo.GetByID(c.Param("id"))
	if err != nil || comment == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve comment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// TogglePin sets or clears the pin flag of a comment (admin only)
// PUT /api/comments/:id/pin
func (h *CommentHandler) TogglePin(c *gin.Context) {
	comment, err := h.commentRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load comment",
		})
		return
	}
	if comment == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Comment not found",
		})
		return
	}

	if err := h.commentRepo.SetPinned(comment.ID, !comment.IsPinned); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to pin comment",
		})
		return
	}

	comment.IsPinned = !comment.IsPinned
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// Delete removes a comment and all of its replies. Allowed for admins and
// the comment's author.
// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	viewer := h.optionalViewer(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	comment, err := h.commentRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load comment",
		})
		return
	}
	if comment == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Comment not found",
		})
		return
	}

	if !services.CanDeleteComment(*comment, viewer) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Not allowed to delete this comment",
		})
		return
	}

	if err := h.commentRepo.Delete(comment.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Comment not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete comment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// loadStory resolves the :id route parameter to a story, writing the
// error response itself on failure
func (h *CommentHandler) loadStory(c *gin.Context) (*models.Story, bool) {
	story, err := h.storyRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load story",
		})
		return nil, false
	}
	if story == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Story not found",
		})
		return nil, false
	}
	return story, true
}

// optionalViewer loads the full user record when the request carries
// valid claims, or nil for anonymous requests
func (h *CommentHandler) optionalViewer(c *gin.Context) *models.User {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return nil
	}
	user, err := h.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}
