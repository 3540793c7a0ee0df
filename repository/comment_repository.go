package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chu-duc-anh/imnovelteam/database"
	"github.com/chu-duc-anh/imnovelteam/models"
)

// CommentRepository handles comment database operations
type CommentRepository struct{}

// NewCommentRepository creates a new comment repository
func NewCommentRepository() *CommentRepository {
	return &CommentRepository{}
}

const commentSelect = `
	SELECT cm.id, cm.story_id, cm.chapter_id, cm.text, cm.parent_id, cm.is_pinned, cm.created_at,
		u.id, u.username, u.role, u.race, u.picture, a.id, a.username
	FROM comments cm
	JOIN users u ON cm.author_id = u.id
	LEFT JOIN users a ON u.ally_of_id = a.id`

// ListForStory returns all comments of a story. A nil chapterID selects
// story-level comments, a non-nil one selects that chapter's comments.
func (r *CommentRepository) ListForStory(storyID string, chapterID *string) ([]models.Comment, error) {
	var rows *sql.Rows
	var err error
	if chapterID == nil {
		rows, err = database.DB.Query(commentSelect+`
			WHERE cm.story_id = ? AND cm.chapter_id IS NULL
			ORDER BY cm.created_at`, storyID)
	} else {
		rows, err = database.DB.Query(commentSelect+`
			WHERE cm.story_id = ? AND cm.chapter_id = ?
			ORDER BY cm.created_at`, storyID, *chapterID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments, err := scanComments(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachLikes(comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetByID returns a single comment, or nil when not found
func (r *CommentRepository) GetByID(id string) (*models.Comment, error) {
	rows, err := database.DB.Query(commentSelect+` WHERE cm.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	defer rows.Close()

	comments, err := scanComments(rows)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, nil
	}
	if err := r.attachLikes(comments); err != nil {
		return nil, err
	}
	return &comments[0], nil
}

// Create inserts a new comment. The caller must have validated that the
// parent, if any, belongs to the same story.
func (r *CommentRepository) Create(c *models.Comment, authorID string) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Timestamp = time.Now().UTC()
	if c.Likes == nil {
		c.Likes = []string{}
	}

	return database.WithRetry(func() error {
		_, err := database.DB.Exec(`
			INSERT INTO comments (id, story_id, chapter_id, author_id, text, parent_id, is_pinned, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
			c.ID, c.StoryID, c.ChapterID, authorID, c.Text, c.ParentID, c.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return nil
	})
}

// ToggleLike adds the user's like if absent, removes it otherwise
func (r *CommentRepository) ToggleLike(commentID, userID string) error {
	return database.WithTransaction(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT COUNT(*) FROM comments WHERE id = ?`, commentID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check comment: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("comment: %w", ErrNotFound)
		}

		result, err := tx.Exec(`
			DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?`,
			commentID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove like: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if removed > 0 {
			return nil
		}

		if _, err := tx.Exec(`
			INSERT INTO comment_likes (comment_id, user_id) VALUES (?, ?)`,
			commentID, userID,
		); err != nil {
			return fmt.Errorf("failed to add like: %w", err)
		}
		return nil
	})
}

// SetPinned sets the pin flag of a comment
func (r *CommentRepository) SetPinned(commentID string, pinned bool) error {
	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			UPDATE comments SET is_pinned = ? WHERE id = ?`,
			pinned, commentID,
		)
		if err != nil {
			return fmt.Errorf("failed to pin comment: %w", err)
		}
		return requireRowAffected(result, "comment")
	})
}

// Delete removes a comment and all of its descendant replies, together
// with their likes
func (r *CommentRepository) Delete(commentID string) error {
	return database.WithTransaction(func(tx *sql.Tx) error {
		// Walk the reply tree breadth-first collecting ids to remove
		toDelete := []string{commentID}
		frontier := []string{commentID}
		for len(frontier) > 0 {
			var next []string
			for _, id := range frontier {
				rows, err := tx.Query(`SELECT id FROM comments WHERE parent_id = ?`, id)
				if err != nil {
					return fmt.Errorf("failed to collect replies: %w", err)
				}
				for rows.Next() {
					var childID string
					if err := rows.Scan(&childID); err != nil {
						rows.Close()
						return fmt.Errorf("failed to scan reply id: %w", err)
					}
					next = append(next, childID)
				}
				if err := rows.Err(); err != nil {
					rows.Close()
					return fmt.Errorf("failed to iterate replies: %w", err)
				}
				rows.Close()
			}
			toDelete = append(toDelete, next...)
			frontier = next
		}

		for _, id := range toDelete {
			if _, err := tx.Exec(`DELETE FROM comment_likes WHERE comment_id = ?`, id); err != nil {
				return fmt.Errorf("failed to delete comment likes: %w", err)
			}
		}

		var deleted int64
		for _, id := range toDelete {
			result, err := tx.Exec(`DELETE FROM comments WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("failed to delete comment: %w", err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read affected rows: %w", err)
			}
			deleted += n
		}
		if deleted == 0 {
			return fmt.Errorf("comment: %w", ErrNotFound)
		}
		return nil
	})
}

// scanComments reads comment rows with their joined author summaries
func scanComments(rows *sql.Rows) ([]models.Comment, error) {
	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var author models.UserSummary
		var chapterID, parentID, allyID, allyName sql.NullString
		if err := rows.Scan(
			&c.ID, &c.StoryID, &chapterID, &c.Text, &parentID, &c.IsPinned, &c.Timestamp,
			&author.ID, &author.Username, &author.Role, &author.Race, &author.Picture,
			&allyID, &allyName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		if chapterID.Valid {
			c.ChapterID = &chapterID.String
		}
		if parentID.Valid {
			c.ParentID = &parentID.String
		}
		if allyID.Valid {
			author.AllyOf = &models.UserRef{ID: allyID.String, Username: allyName.String}
		}
		c.Author = &author
		c.Likes = []string{}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// attachLikes fills the Likes slices of the given comments
func (r *CommentRepository) attachLikes(comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	index := make(map[string]*models.Comment, len(comments))
	args := make([]interface{}, 0, len(comments))
	placeholders := ""
	for i := range comments {
		index[comments[i].ID] = &comments[i]
		args = append(args, comments[i].ID)
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
	}

	rows, err := database.DB.Query(`
		SELECT comment_id, user_id FROM comment_likes
		WHERE comment_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to load comment likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var commentID, userID string
		if err := rows.Scan(&commentID, &userID); err != nil {
			return fmt.Errorf("failed to scan like row: %w", err)
		}
		if c, ok := index[commentID]; ok {
			c.Likes = append(c.Likes, userID)
		}
	}
	return rows.Err()
}
