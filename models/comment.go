package models

import "time"

// Comment represents a single comment on a story or chapter. Author is
// embedded as a public summary; Likes holds the ids of users who liked
// the comment.
type Comment struct {
	ID        string       `json:"id"`
	StoryID   string       `json:"story_id"`
	ChapterID *string      `json:"chapter_id,omitempty"`
	Author    *UserSummary `json:"author"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Likes     []string     `json:"likes"`
	ParentID  *string      `json:"parent_id"`
	IsPinned  bool         `json:"is_pinned"`
}

// CreateCommentRequest is the request body for posting a comment
type CreateCommentRequest struct {
	StoryID   string  `json:"story_id" binding:"required"`
	ChapterID *string `json:"chapter_id"`
	ParentID  *string `json:"parent_id"`
	Text      string  `json:"text" binding:"required,min=1,max=2000"`
}
