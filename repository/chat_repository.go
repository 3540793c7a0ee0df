package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chu-duc-anh/imnovelteam/database"
	"github.com/chu-duc-anh/imnovelteam/models"
)

// ChatRepository handles chat message database operations. Threads are
// not stored; they are derived from the flat message table, keyed by the
// non-admin participant's user id.
type ChatRepository struct{}

// NewChatRepository creates a new chat repository
func NewChatRepository() *ChatRepository {
	return &ChatRepository{}
}

// Create inserts a new chat message (with retry for SQLITE_BUSY)
func (r *ChatRepository) Create(msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Timestamp = time.Now().UTC()

	return database.WithRetry(func() error {
		_, err := database.DB.Exec(`
			INSERT INTO chat_messages (id, sender_id, receiver_id, text, is_read, created_at)
			VALUES (?, ?, ?, ?, 0, ?)`,
			msg.ID, msg.Sender.ID, msg.ReceiverID, msg.Text, msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to create chat message: %w", err)
		}
		return nil
	})
}

// ListThreads assembles every support conversation, messages ordered
// oldest first within each thread
func (r *ChatRepository) ListThreads() ([]models.ChatThread, error) {
	rows, err := database.DB.Query(`
		SELECT id, sender_id, receiver_id, text, is_read, created_at
		FROM chat_messages
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	return r.assembleThreads(rows)
}

// GetThreadForUser returns the single conversation between the given user
// and the admin pseudo-user, or nil if no messages exist yet
func (r *ChatRepository) GetThreadForUser(userID string) (*models.ChatThread, error) {
	rows, err := database.DB.Query(`
		SELECT id, sender_id, receiver_id, text, is_read, created_at
		FROM chat_messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at`,
		userID, models.AdminUserID, models.AdminUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	defer rows.Close()

	threads, err := r.assembleThreads(rows)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return nil, nil
	}
	return &threads[0], nil
}

// MarkRead flips is_read on all unread messages from senderID to
// receiverID. The caller supplies the direction matching the viewer.
func (r *ChatRepository) MarkRead(senderID, receiverID string) error {
	return database.WithRetry(func() error {
		_, err := database.DB.Exec(`
			UPDATE chat_messages SET is_read = 1
			WHERE sender_id = ? AND receiver_id = ? AND is_read = 0`,
			senderID, receiverID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark messages read: %w", err)
		}
		return nil
	})
}

// DeleteThread removes every message of the conversation with the given
// user. Not recoverable. Threads are keyed by the non-admin participant,
// so the admin pseudo-id never names a thread.
func (r *ChatRepository) DeleteThread(threadUserID string) error {
	if threadUserID == models.AdminUserID {
		return fmt.Errorf("thread: %w", ErrNotFound)
	}
	return database.WithRetry(func() error {
		result, err := database.DB.Exec(`
			DELETE FROM chat_messages WHERE sender_id = ? OR receiver_id = ?`,
			threadUserID, threadUserID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete thread: %w", err)
		}
		return requireRowAffected(result, "thread")
	})
}

// CountSentSince counts messages the sender has created since the given
// time. Used for the daily quota.
func (r *ChatRepository) CountSentSince(senderID string, since time.Time) (int, error) {
	var count int
	err := database.DB.QueryRow(`
		SELECT COUNT(*) FROM chat_messages
		WHERE sender_id = ? AND created_at >= ?`,
		senderID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sent messages: %w", err)
	}
	return count, nil
}

// assembleThreads groups flat message rows into threads keyed by the
// non-admin participant and decorates them with that user's profile
func (r *ChatRepository) assembleThreads(rows *sql.Rows) ([]models.ChatThread, error) {
	byUser := make(map[string]*models.ChatThread)
	var order []string

	for rows.Next() {
		var msg models.ChatMessage
		var isRead int
		if err := rows.Scan(&msg.ID, &msg.Sender.ID, &msg.ReceiverID, &msg.Text, &isRead, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		msg.IsRead = isRead != 0

		threadUser := msg.Sender.ID
		if threadUser == models.AdminUserID {
			threadUser = msg.ReceiverID
		}
		thread, ok := byUser[threadUser]
		if !ok {
			thread = &models.ChatThread{ID: threadUser, UserID: threadUser}
			byUser[threadUser] = thread
			order = append(order, threadUser)
		}
		thread.Messages = append(thread.Messages, msg)
		if msg.Timestamp.After(thread.LastMessageTimestamp) {
			thread.LastMessageTimestamp = msg.Timestamp
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}
	if len(order) == 0 {
		return []models.ChatThread{}, nil
	}

	if err := r.decorateThreads(byUser); err != nil {
		return nil, err
	}

	threads := make([]models.ChatThread, 0, len(order))
	for _, userID := range order {
		threads = append(threads, *byUser[userID])
	}
	return threads, nil
}

// decorateThreads fills user names, avatars and embedded sender summaries
// from the users table. Threads of deleted users keep their messages but
// lose the profile decoration.
func (r *ChatRepository) decorateThreads(byUser map[string]*models.ChatThread) error {
	args := make([]interface{}, 0, len(byUser))
	placeholders := ""
	for userID := range byUser {
		if placeholders != "" {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, userID)
	}

	rows, err := database.DB.Query(`
		SELECT id, username, picture FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to load thread users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, username, picture string
		if err := rows.Scan(&id, &username, &picture); err != nil {
			return fmt.Errorf("failed to scan thread user row: %w", err)
		}
		thread, ok := byUser[id]
		if !ok {
			continue
		}
		thread.UserName = username
		thread.UserAvatar = picture
		for i := range thread.Messages {
			if thread.Messages[i].Sender.ID == id {
				thread.Messages[i].Sender.Username = username
				thread.Messages[i].Sender.Picture = picture
			}
		}
	}
	return rows.Err()
}
