package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chu-duc-anh/imnovelteam/database"
	"github.com/chu-duc-anh/imnovelteam/models"
)

// StoryRepository handles story and chapter database operations
type StoryRepository struct{}

// NewStoryRepository creates a new story repository
func NewStoryRepository() *StoryRepository {
	return &StoryRepository{}
}

const storySelect = `
	SELECT s.id, s.title, s.author, s.translator, s.cover_image_url, s.genres,
		s.description, s.status, s.views, s.created_at, s.updated_at,
		u.id, u.username
	FROM stories s
	JOIN users u ON s.creator_id = u.id`

// Create inserts a new story (with retry for SQLITE_BUSY)
func (r *StoryRepository) Create(story *models.Story) error {
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	story.CreatedAt = now
	story.UpdatedAt = now
	if story.Status == "" {
		story.Status = models.StoryOngoing
	}
	if story.Genres == nil {
		story.Genres = []string{}
	}
	if story.Likes == nil {
		story.Likes = []string{}
	}

	genres, err := json.Marshal(story.Genres)
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}

	return database.WithRetry(func() error {
		_, err := database.DB.Exec(`
			INSERT INTO stories (id, creator_id, title, author, translator, cover_image_url, genres, description, status, views, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			story.ID, story.Creator.ID, story.Title, story.Author, story.Translator,
			story.CoverImageURL, string(genres), story.Description, story.Status, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create story: %w", err)
		}
		return nil
	})
}

// Update rewrites the editable fields of a story
func (r *StoryRepository) Update(story *models.Story) error {
	story.UpdatedAt = time.Now().UTC()
	genres, err := json.Marshal(story.Genres)
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}

	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			UPDATE stories SET title = ?, author = ?, translator = ?, cover_image_url = ?,
				genres = ?, description = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			story.Title, story.Author, story.Translator, story.CoverImageURL,
			string(genres), story.Description, story.Status, story.UpdatedAt, story.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update story: %w", err)
		}
		return requireRowAffected(result, "story")
	})
}

// GetByID returns a single story, or nil when not found
func (r *StoryRepository) GetByID(id string) (*models.Story, error) {
	rows, err := database.DB.Query(storySelect+` WHERE s.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	defer rows.Close()

	stories, err := r.scanStories(rows)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, nil
	}
	if err := r.attachAssociations(stories); err != nil {
		return nil, err
	}
	return &stories[0], nil
}

// List returns all stories, most recently updated first
func (r *StoryRepository) List() ([]models.Story, error) {
	rows, err := database.DB.Query(storySelect + ` ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	stories, err := r.scanStories(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachAssociations(stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// Delete removes a story together with its chapters, comments and likes
func (r *StoryRepository) Delete(storyID string) error {
	return database.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM comment_likes WHERE comment_id IN
				(SELECT id FROM comments WHERE story_id = ?)`, storyID); err != nil {
			return fmt.Errorf("failed to delete comment likes: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM comments WHERE story_id = ?`, storyID); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM chapters WHERE story_id = ?`, storyID); err != nil {
			return fmt.Errorf("failed to delete chapters: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM story_likes WHERE story_id = ?`, storyID); err != nil {
			return fmt.Errorf("failed to delete story likes: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM story_bookmarks WHERE story_id = ?`, storyID); err != nil {
			return fmt.Errorf("failed to delete story bookmarks: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM story_ratings WHERE story_id = ?`, storyID); err != nil {
			return fmt.Errorf("failed to delete story ratings: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM stories WHERE id = ?`, storyID)
		if err != nil {
			return fmt.Errorf("failed to delete story: %w", err)
		}
		return requireRowAffected(result, "story")
	})
}

// ToggleLike adds the user's like if absent, removes it otherwise
func (r *StoryRepository) ToggleLike(storyID, userID string) error {
	return database.WithTransaction(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT COUNT(*) FROM stories WHERE id = ?`, storyID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check story: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("story: %w", ErrNotFound)
		}

		result, err := tx.Exec(`
			DELETE FROM story_likes WHERE story_id = ? AND user_id = ?`,
			storyID, userID,
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
			INSERT INTO story_likes (story_id, user_id) VALUES (?, ?)`,
			storyID, userID,
		); err != nil {
			return fmt.Errorf("failed to add like: %w", err)
		}
		return nil
	})
}

// ToggleBookmark adds the user's bookmark if absent, removes it otherwise
func (r *StoryRepository) ToggleBookmark(storyID, userID string) error {
	return database.WithTransaction(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT COUNT(*) FROM stories WHERE id = ?`, storyID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check story: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("story: %w", ErrNotFound)
		}

		result, err := tx.Exec(`
			DELETE FROM story_bookmarks WHERE story_id = ? AND user_id = ?`,
			storyID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove bookmark: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if removed > 0 {
			return nil
		}

		if _, err := tx.Exec(`
			INSERT INTO story_bookmarks (story_id, user_id) VALUES (?, ?)`,
			storyID, userID,
		); err != nil {
			return fmt.Errorf("failed to add bookmark: %w", err)
		}
		return nil
	})
}

// Rate stores the user's star rating for a story, replacing any previous
// score
func (r *StoryRepository) Rate(storyID, userID string, score int) error {
	return database.WithTransaction(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT COUNT(*) FROM stories WHERE id = ?`, storyID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check story: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("story: %w", ErrNotFound)
		}

		// Replace wholesale so resubmitting the same score stays a no-op
		// on both backends
		if _, err := tx.Exec(`
			DELETE FROM story_ratings WHERE story_id = ? AND user_id = ?`,
			storyID, userID,
		); err != nil {
			return fmt.Errorf("failed to clear previous rating: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO story_ratings (story_id, user_id, score) VALUES (?, ?, ?)`,
			storyID, userID, score,
		); err != nil {
			return fmt.Errorf("failed to add rating: %w", err)
		}
		return nil
	})
}

// IncrementViews bumps the view counter of a story
func (r *StoryRepository) IncrementViews(storyID string) error {
	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			UPDATE stories SET views = views + 1 WHERE id = ?`, storyID)
		if err != nil {
			return fmt.Errorf("failed to increment views: %w", err)
		}
		return requireRowAffected(result, "story")
	})
}

// CreateChapter appends a chapter to a story
func (r *StoryRepository) CreateChapter(chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	chapter.CreatedAt = now
	chapter.UpdatedAt = now

	return database.WithRetry(func() error {
		_, err := database.DB.Exec(`
			INSERT INTO chapters (id, story_id, title, content, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			chapter.ID, chapter.StoryID, chapter.Title, chapter.Content, chapter.Position, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create chapter: %w", err)
		}
		return nil
	})
}

// GetChapter returns a single chapter, or nil when not found
func (r *StoryRepository) GetChapter(id string) (*models.Chapter, error) {
	chapter := &models.Chapter{}
	err := database.DB.QueryRow(`
		SELECT id, story_id, title, content, position, created_at, updated_at
		FROM chapters WHERE id = ?`, id,
	).Scan(&chapter.ID, &chapter.StoryID, &chapter.Title, &chapter.Content,
		&chapter.Position, &chapter.CreatedAt, &chapter.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return chapter, nil
}

// ListChapters returns the chapters of a story in reading order
func (r *StoryRepository) ListChapters(storyID string) ([]models.Chapter, error) {
	rows, err := database.DB.Query(`
		SELECT id, story_id, title, content, position, created_at, updated_at
		FROM chapters WHERE story_id = ?
		ORDER BY position, created_at`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []models.Chapter
	for rows.Next() {
		var ch models.Chapter
		if err := rows.Scan(&ch.ID, &ch.StoryID, &ch.Title, &ch.Content,
			&ch.Position, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chapter row: %w", err)
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

func (r *StoryRepository) scanStories(rows *sql.Rows) ([]models.Story, error) {
	var stories []models.Story
	for rows.Next() {
		var s models.Story
		var genres string
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Author, &s.Translator, &s.CoverImageURL, &genres,
			&s.Description, &s.Status, &s.Views, &s.CreatedAt, &s.UpdatedAt,
			&s.Creator.ID, &s.Creator.Username,
		); err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		if err := json.Unmarshal([]byte(genres), &s.Genres); err != nil {
			return nil, fmt.Errorf("failed to decode genres: %w", err)
		}
		if s.Genres == nil {
			s.Genres = []string{}
		}
		s.Likes = []string{}
		s.Bookmarks = []string{}
		s.Ratings = []models.StoryRating{}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}
	return stories, nil
}

// attachAssociations fills the likes, bookmarks and ratings of the given
// stories and refreshes their rating aggregates
func (r *StoryRepository) attachAssociations(stories []models.Story) error {
	if len(stories) == 0 {
		return nil
	}

	index := make(map[string]*models.Story, len(stories))
	args := make([]interface{}, 0, len(stories))
	placeholders := ""
	for i := range stories {
		index[stories[i].ID] = &stories[i]
		args = append(args, stories[i].ID)
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
	}

	if err := r.attachUserSet(index, args, `
		SELECT story_id, user_id FROM story_likes
		WHERE story_id IN (`+placeholders+`)`,
		func(s *models.Story, userID string) { s.Likes = append(s.Likes, userID) },
	); err != nil {
		return fmt.Errorf("failed to load story likes: %w", err)
	}

	if err := r.attachUserSet(index, args, `
		SELECT story_id, user_id FROM story_bookmarks
		WHERE story_id IN (`+placeholders+`)`,
		func(s *models.Story, userID string) { s.Bookmarks = append(s.Bookmarks, userID) },
	); err != nil {
		return fmt.Errorf("failed to load story bookmarks: %w", err)
	}

	rows, err := database.DB.Query(`
		SELECT story_id, user_id, score FROM story_ratings
		WHERE story_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to load story ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var storyID string
		var rating models.StoryRating
		if err := rows.Scan(&storyID, &rating.UserID, &rating.Score); err != nil {
			return fmt.Errorf("failed to scan rating row: %w", err)
		}
		if s, ok := index[storyID]; ok {
			s.Ratings = append(s.Ratings, rating)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range stories {
		stories[i].RecomputeRating()
	}
	return nil
}

// attachUserSet runs a (story_id, user_id) query and feeds each row to
// apply
func (r *StoryRepository) attachUserSet(index map[string]*models.Story, args []interface{}, query string, apply func(*models.Story, string)) error {
	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var storyID, userID string
		if err := rows.Scan(&storyID, &userID); err != nil {
			return err
		}
		if s, ok := index[storyID]; ok {
			apply(s, userID)
		}
	}
	return rows.Err()
}
