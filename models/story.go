package models

import "time"

// Story status values
const (
	StoryOngoing   = "Ongoing"
	StoryCompleted = "Completed"
	StoryDropped   = "Dropped"
)

// Story represents a hosted web novel
type Story struct {
	ID            string        `json:"id"`
	Creator       UserRef       `json:"creator"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	Translator    string        `json:"translator,omitempty"`
	CoverImageURL string        `json:"cover_image_url,omitempty"`
	Genres        []string      `json:"genres"`
	Description   string        `json:"description,omitempty"`
	Status        string        `json:"status"`
	Likes         []string      `json:"likes"`
	Bookmarks     []string      `json:"bookmarks"`
	Ratings       []StoryRating `json:"ratings"`
	Rating        float64       `json:"rating"`
	RatingCount   int           `json:"rating_count"`
	Views         int           `json:"views"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// StoryRating is one user's score for a story. A user holds at most one
// rating per story; resubmitting replaces it.
type StoryRating struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

// RecomputeRating refreshes the aggregate rating fields from the Ratings
// slice
func (s *Story) RecomputeRating() {
	s.RatingCount = len(s.Ratings)
	if s.RatingCount == 0 {
		s.Rating = 0
		return
	}
	sum := 0
	for _, r := range s.Ratings {
		sum += r.Score
	}
	s.Rating = float64(sum) / float64(s.RatingCount)
}

// IsBookmarkedBy reports whether the given user has bookmarked the story
func (s *Story) IsBookmarkedBy(userID string) bool {
	for _, id := range s.Bookmarks {
		if id == userID {
			return true
		}
	}
	return false
}

// Chapter represents one chapter of a story
type Chapter struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"story_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateStoryRequest is the request body for creating or updating a story
type CreateStoryRequest struct {
	Title         string   `json:"title" binding:"required,min=1,max=300"`
	Author        string   `json:"author" binding:"required,min=1,max=200"`
	Translator    string   `json:"translator"`
	CoverImageURL string   `json:"cover_image_url"`
	Genres        []string `json:"genres"`
	Description   string   `json:"description"`
	Status        string   `json:"status" binding:"omitempty,oneof=Ongoing Completed Dropped"`
}

// RateStoryRequest is the request body for submitting a star rating
type RateStoryRequest struct {
	Score int `json:"score" binding:"required,min=1,max=5"`
}

// CreateChapterRequest is the request body for adding a chapter
type CreateChapterRequest struct {
	Title    string `json:"title" binding:"required,min=1,max=300"`
	Content  string `json:"content" binding:"required"`
	Position int    `json:"position"`
}
