package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chu-duc-anh/imnovelteam/middleware"
	"github.com/chu-duc-anh/imnovelteam/models"
	"github.com/chu-duc-anh/imnovelteam/repository"
	"github.com/chu-duc-anh/imnovelteam/services"
)

// StoryHandler handles story and chapter endpoints
type StoryHandler struct {
	storyRepo  *repository.StoryRepository
	userRepo   *repository.UserRepository
	coverCache *services.CoverCacheService
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(storyRepo *repository.StoryRepository, userRepo *repository.UserRepository, coverCache *services.CoverCacheService) *StoryHandler {
	return &StoryHandler{
		storyRepo:  storyRepo,
		userRepo:   userRepo,
		coverCache: coverCache,
	}
}

// List returns all stories, most recently updated first
// GET /api/stories
func (h *StoryHandler) List(c *gin.Context) {
	stories, err := h.storyRepo.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load stories",
		})
		return
	}
	if stories == nil {
		stories = []models.Story{}
	}

	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// Get returns one story and counts the view
// GET /api/stories/:id
func (h *StoryHandler) Get(c *gin.Context) {
	story, err := h.storyRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load story",
		})
		return
	}
	if story == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Story not found",
		})
		return
	}

	if err := h.storyRepo.IncrementViews(story.ID); err != nil {
		log.Printf("Failed to count view for story %s: %v", story.ID, err)
	} else {
		story.Views++
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

// Create publishes a new story. Contractors and admins only.
// POST /api/stories
func (h *StoryHandler) Create(c *gin.Context) {
	viewer, ok := h.requirePublisher(c)
	if !ok {
		return
	}

	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	story := &models.Story{
		Creator:       models.UserRef{ID: viewer.ID, Username: viewer.Username},
		Title:         req.Title,
		Author:        req.Author,
		Translator:    req.Translator,
		CoverImageURL: req.CoverImageURL,
		Genres:        req.Genres,
		Description:   req.Description,
		Status:        req.Status,
	}
	if err := h.storyRepo.Create(story); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create story",
		})
		return
	}

	h.coverCache.CacheCoverAsync(story.ID, story.CoverImageURL)

	c.JSON(http.StatusCreated, gin.H{"story": story})
}

// Update rewrites a story's metadata. Allowed for the creator and admins.
// PUT /api/stories/:id
func (h *StoryHandler) Update(c *gin.Context) {
	story, _, ok := h.loadOwnedStory(c)
	if !ok {
		return
	}

	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	if req.CoverImageURL != story.CoverImageURL {
		h.coverCache.Invalidate(story.ID)
		h.coverCache.CacheCoverAsync(story.ID, req.CoverImageURL)
	}

	story.Title = req.Title
	story.Author = req.Author
	story.Translator = req.Translator
	story.CoverImageURL = req.CoverImageURL
	story.Genres = req.Genres
	story.Description = req.Description
	if req.Status != "" {
		story.Status = req.Status
	}

	if err := h.storyRepo.Update(story); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Story not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update story",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

// Delete removes a story with its chapters and comments. Allowed for the
// creator and admins.
// DELETE /api/stories/:id
func (h *StoryHandler) Delete(c *gin.Context) {
	story, _, ok := h.loadOwnedStory(c)
	if !ok {
		return
	}

	if err := h.storyRepo.Delete(story.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Story not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete story",
		})
		return
	}

	h.coverCache.Invalidate(story.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Story deleted"})
}

// ToggleLike flips the viewer's like on a story
// POST /api/stories/:id/like
func (h *StoryHandler) ToggleLike(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	if err := h.storyRepo.ToggleLike(c.Param("id"), claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Story not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to toggle like",
		})
		return
	}

	story, err := h.storyRepo.GetByID(c.Param("id"))
	if err != nil || story == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve story",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

// ToggleBookmark flips the viewer's bookmark on a story
// PUT /api/stories/:id/bookmark
func (h *StoryHandler) ToggleBookmark(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	if err := h.storyRepo.ToggleBookmark(c.Param("id"), claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Story not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to toggle bookmark",
		})
		return
	}

	story, err := h.storyRepo.GetByID(c.Param("id"))
	if err != nil || story == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve story",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

// Rate submits the viewer's star rating for a story, replacing any
// earlier score
// POST /api/stories/:id/rate
func (h *StoryHandler) Rate(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req models.RateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	if err := h.storyRepo.Rate(c.Param("id"), claims.UserID, req.Score); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Story not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to rate story",
		})
		return
	}

	story, err := h.storyRepo.GetByID(c.Param("id"))
	if err != nil || story == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve story",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

// ListChapters returns a story's chapters in reading order
// GET /api/stories/:id/chapters
func (h *StoryHandler) ListChapters(c *gin.Context) {
	story, err := h.storyRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load story",
		})
		return
	}
	if story == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Story not found",
		})
		return
	}

	chapters, err := h.storyRepo.ListChapters(story.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load chapters",
		})
		return
	}
	if chapters == nil {
		chapters = []models.Chapter{}
	}

	c.JSON(http.StatusOK, gin.H{"chapters": chapters})
}

// CreateChapter appends a chapter to a story. Allowed for the creator and
// admins.
// POST /api/stories/:id/chapters
func (h *StoryHandler) CreateChapter(c *gin.Context) {
	story, _, ok := h.loadOwnedStory(c)
	if !ok {
		return
	}

	var req models.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	chapter := &models.Chapter{
		StoryID:  story.ID,
		Title:    req.Title,
		Content:  req.Content,
		Position: req.Position,
	}
	if err := h.storyRepo.CreateChapter(chapter); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create chapter",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"chapter": chapter})
}

// GetChapter returns a single chapter
// GET /api/chapters/:id
func (h *StoryHandler) GetChapter(c *gin.Context) {
	chapter, err := h.storyRepo.GetChapter(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load chapter",
		})
		return
	}
	if chapter == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Chapter not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chapter": chapter})
}

// requirePublisher loads the viewer and checks they may publish stories
func (h *StoryHandler) requirePublisher(c *gin.Context) (*models.User, bool) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return nil, false
	}
	if viewer.Role != models.RoleAdmin && viewer.Role != models.RoleContractor {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Only contractors can publish stories",
		})
		return nil, false
	}
	return viewer, true
}

// loadOwnedStory resolves the :id parameter and checks the viewer is the
// story's creator or an admin
func (h *StoryHandler) loadOwnedStory(c *gin.Context) (*models.Story, *models.User, bool) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return nil, nil, false
	}

	story, err := h.storyRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load story",
		})
		return nil, nil, false
	}
	if story == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Story not found",
		})
		return nil, nil, false
	}

	if !viewer.IsAdmin() && story.Creator.ID != viewer.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Not allowed to modify this story",
		})
		return nil, nil, false
	}
	return story, viewer, true
}

func (h *StoryHandler) currentUser(c *gin.Context) (*models.User, bool) {
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
