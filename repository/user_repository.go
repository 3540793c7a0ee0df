package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chu-duc-anh/imnovelteam/database"
	"github.com/chu-duc-anh/imnovelteam/models"
)

// UserRepository handles user database operations
type UserRepository struct{}

// NewUserRepository creates a new user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Create creates a new user (with retry for SQLITE_BUSY)
func (r *UserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	return database.WithRetry(func() error {
		_, err := database.DB.Exec(`
			INSERT INTO users (id, username, password_hash, role, race, picture, ally_of_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.Username, user.PasswordHash, user.Role, user.Race, user.Picture, user.AllyOfID, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

// GetByID finds a user by ID, returning nil when not found
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	return r.getOne(`
		SELECT id, username, password_hash, role, race, picture, ally_of_id, created_at, updated_at
		FROM users WHERE id = ?`, id)
}

// GetByUsername finds a user by username, returning nil when not found
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	return r.getOne(`
		SELECT id, username, password_hash, role, race, picture, ally_of_id, created_at, updated_at
		FROM users WHERE username = ?`, username)
}

func (r *UserRepository) getOne(query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	var allyOf sql.NullString
	err := database.DB.QueryRow(query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Race,
		&user.Picture, &allyOf, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if allyOf.Valid {
		user.AllyOfID = &allyOf.String
	}
	return user, nil
}

// GetAll returns all users ordered by username
func (r *UserRepository) GetAll() ([]models.User, error) {
	rows, err := database.DB.Query(`
		SELECT id, username, password_hash, role, race, picture, ally_of_id, created_at, updated_at
		FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var allyOf sql.NullString
		if err := rows.Scan(
			&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Race,
			&user.Picture, &allyOf, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		if allyOf.Valid {
			user.AllyOfID = &allyOf.String
		}
		users = append(users, user)
	}
	return users, nil
}

// SummaryByID returns the public summary of a user including the resolved
// ally reference, or nil when the user does not exist
func (r *UserRepository) SummaryByID(id string) (*models.UserSummary, error) {
	var summary models.UserSummary
	var allyID, allyName sql.NullString
	err := database.DB.QueryRow(`
		SELECT u.id, u.username, u.role, u.race, u.picture, a.id, a.username
		FROM users u
		LEFT JOIN users a ON u.ally_of_id = a.id
		WHERE u.id = ?`, id,
	).Scan(&summary.ID, &summary.Username, &summary.Role, &summary.Race, &summary.Picture, &allyID, &allyName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user summary: %w", err)
	}
	if allyID.Valid {
		summary.AllyOf = &models.UserRef{ID: allyID.String, Username: allyName.String}
	}
	return &summary, nil
}

// UpdateRole changes a user's role
func (r *UserRepository) UpdateRole(id, role string) error {
	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
			role, time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		return requireRowAffected(result, "user")
	})
}

// UpdateAlly assigns or clears the contractor a user is an ally of
func (r *UserRepository) UpdateAlly(id string, contractorID *string) error {
	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			UPDATE users SET ally_of_id = ?, updated_at = ? WHERE id = ?`,
			contractorID, time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update ally: %w", err)
		}
		return requireRowAffected(result, "user")
	})
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(id, passwordHash string) error {
	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
			passwordHash, time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return requireRowAffected(result, "user")
	})
}

// GetLeaderboard returns the top users ranked by the total number of
// likes received across their comments and stories
func (r *UserRepository) GetLeaderboard(limit int) ([]models.LeaderboardUser, error) {
	rows, err := database.DB.Query(`
		SELECT u.id, u.username, u.role, u.race, u.picture,
			(SELECT COUNT(*) FROM comment_likes cl JOIN comments c ON cl.comment_id = c.id WHERE c.author_id = u.id) +
			(SELECT COUNT(*) FROM story_likes sl JOIN stories s ON sl.story_id = s.id WHERE s.creator_id = u.id)
			AS total_score
		FROM users u
		ORDER BY total_score DESC, u.username
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var leaders []models.LeaderboardUser
	for rows.Next() {
		var entry models.LeaderboardUser
		if err := rows.Scan(&entry.ID, &entry.Username, &entry.Role, &entry.Race, &entry.Picture, &entry.TotalScore); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		leaders = append(leaders, entry)
	}
	return leaders, nil
}

// requireRowAffected turns a zero-row update into ErrNotFound
func requireRowAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}
