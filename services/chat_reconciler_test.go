package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chu-duc-anh/imnovelteam/models"
)

var chatBase = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func makeMessage(id, senderID, receiverID string, minutes int, read bool) models.ChatMessage {
	return models.ChatMessage{
		ID:         id,
		Sender:     models.SenderRef{ID: senderID},
		ReceiverID: receiverID,
		Text:       "msg " + id,
		Timestamp:  chatBase.Add(time.Duration(minutes) * time.Minute),
		IsRead:     read,
	}
}

func TestGroupIntoBlocksMergesCloseMessages(t *testing.T) {
	messages := []models.ChatMessage{
		makeMessage("m1", "u1", "admin", 0, true),
		makeMessage("m2", "u1", "admin", 3, true),
		makeMessage("m3", "u1", "admin", 6, true),
	}

	blocks := GroupIntoBlocks(messages)

	require.Len(t, blocks, 3)
	assert.True(t, blocks[0].IsFirstInBlock)
	assert.False(t, blocks[0].IsLastInBlock)
	assert.False(t, blocks[1].IsFirstInBlock)
	assert.False(t, blocks[1].IsLastInBlock)
	assert.False(t, blocks[2].IsFirstInBlock)
	assert.True(t, blocks[2].IsLastInBlock)

	// Only the first message of the run shows a timestamp header
	assert.True(t, blocks[0].ShowTimestampHeader)
	assert.False(t, blocks[1].ShowTimestampHeader)
	assert.False(t, blocks[2].ShowTimestampHeader)
}

func TestGroupIntoBlocksSplitsOnSenderChange(t *testing.T) {
	messages := []models.ChatMessage{
		makeMessage("m1", "u1", "admin", 0, true),
		makeMessage("m2", "admin", "u1", 1, true),
		makeMessage("m3", "admin", "u1", 2, true),
	}

	blocks := GroupIntoBlocks(messages)

	require.Len(t, blocks, 3)
	assert.True(t, blocks[0].IsFirstInBlock)
	assert.True(t, blocks[0].IsLastInBlock)
	assert.True(t, blocks[1].IsFirstInBlock)
	assert.False(t, blocks[1].IsLastInBlock)
	assert.True(t, blocks[2].IsLastInBlock)

	// Sender change within the window does not add a header
	assert.False(t, blocks[1].ShowTimestampHeader)
}

func TestGroupIntoBlocksSplitsOnLargeGap(t *testing.T) {
	messages := []models.ChatMessage{
		makeMessage("m1", "u1", "admin", 0, true),
		makeMessage("m2", "u1", "admin", 11, true),
	}

	blocks := GroupIntoBlocks(messages)

	require.Len(t, blocks, 2)
	assert.True(t, blocks[0].IsLastInBlock)
	assert.True(t, blocks[1].IsFirstInBlock)
	assert.True(t, blocks[1].ShowTimestampHeader)
}

func TestGroupIntoBlocksGapExactlyAtWindow(t *testing.T) {
	messages := []models.ChatMessage{
		makeMessage("m1", "u1", "admin", 0, true),
		makeMessage("m2", "u1", "admin", 10, true),
	}

	blocks := GroupIntoBlocks(messages)

	// A gap of exactly the window still merges
	require.Len(t, blocks, 2)
	assert.False(t, blocks[1].IsFirstInBlock)
	assert.False(t, blocks[1].ShowTimestampHeader)
}

func TestGroupIntoBlocksEmpty(t *testing.T) {
	assert.Empty(t, GroupIntoBlocks(nil))
}

func TestResolveSenderIDAcceptsBothShapes(t *testing.T) {
	plain := models.ChatMessage{Sender: models.SenderRef{ID: "u1"}}
	embedded := models.ChatMessage{Sender: models.SenderRef{ID: "u1", Username: "alice", Picture: "p.png"}}

	assert.Equal(t, "u1", ResolveSenderID(plain))
	assert.Equal(t, "u1", ResolveSenderID(embedded))
}

func TestUnreadCountForThread(t *testing.T) {
	thread := models.ChatThread{
		ID:     "u1",
		UserID: "u1",
		Messages: []models.ChatMessage{
			makeMessage("m1", "u1", "admin", 0, false),
			makeMessage("m2", "u1", "admin", 1, true),
			makeMessage("m3", "admin", "u1", 2, false),
		},
	}

	assert.Equal(t, 1, UnreadCountForThread(thread, "admin"))
	assert.Equal(t, 1, UnreadCountForThread(thread, "u1"))
	assert.Equal(t, 0, UnreadCountForThread(thread, "u2"))
}

func TestTotalUnreadForViewer(t *testing.T) {
	threads := []models.ChatThread{
		{
			ID: "u1", UserID: "u1",
			Messages: []models.ChatMessage{
				makeMessage("m1", "u1", "admin", 0, false),
				makeMessage("m2", "admin", "u1", 1, false),
			},
		},
		{
			ID: "u2", UserID: "u2",
			Messages: []models.ChatMessage{
				makeMessage("m3", "u2", "admin", 0, false),
				makeMessage("m4", "u2", "admin", 1, false),
			},
		},
	}

	t.Run("admin sums every thread", func(t *testing.T) {
		admin := &models.User{ID: "staff-1", Role: models.RoleAdmin}
		assert.Equal(t, 3, TotalUnreadForViewer(threads, admin))
	})

	t.Run("user counts only their own thread", func(t *testing.T) {
		user := &models.User{ID: "u1", Role: models.RoleUser}
		assert.Equal(t, 1, TotalUnreadForViewer(threads, user))
	})

	t.Run("user without a thread has zero", func(t *testing.T) {
		user := &models.User{ID: "u9", Role: models.RoleUser}
		assert.Equal(t, 0, TotalUnreadForViewer(threads, user))
	})

	t.Run("nil viewer has zero", func(t *testing.T) {
		assert.Equal(t, 0, TotalUnreadForViewer(threads, nil))
	})
}

func TestSortThreadsByRecency(t *testing.T) {
	threads := []models.ChatThread{
		{ID: "old", LastMessageTimestamp: chatBase},
		{ID: "new", LastMessageTimestamp: chatBase.Add(time.Hour)},
		{ID: "mid", LastMessageTimestamp: chatBase.Add(time.Minute)},
	}

	sorted := SortThreadsByRecency(threads)

	assert.Equal(t, "new", sorted[0].ID)
	assert.Equal(t, "mid", sorted[1].ID)
	assert.Equal(t, "old", sorted[2].ID)

	// Input order is untouched
	assert.Equal(t, "old", threads[0].ID)
}

func TestQuotaState(t *testing.T) {
	t.Run("regular user counts down", func(t *testing.T) {
		user := &models.User{ID: "u1", Role: models.RoleUser}
		q := NewQuotaState(user, 20, 2)

		assert.True(t, q.CanSend())
		q.RecordSend()
		assert.Equal(t, 1, q.Remaining)
		q.RecordSend()
		assert.Equal(t, 0, q.Remaining)
		assert.False(t, q.CanSend())

		// Decrementing at zero is a no-op
		q.RecordSend()
		assert.Equal(t, 0, q.Remaining)
	})

	t.Run("failed send reverts the decrement", func(t *testing.T) {
		user := &models.User{ID: "u1", Role: models.RoleUser}
		q := NewQuotaState(user, 20, 1)

		q.RecordSend()
		assert.False(t, q.CanSend())
		q.RevertSend()
		assert.Equal(t, 1, q.Remaining)

		// Without a pending send there is nothing to revert
		q.RevertSend()
		assert.Equal(t, 1, q.Remaining)
	})

	t.Run("refresh replaces speculative state", func(t *testing.T) {
		user := &models.User{ID: "u1", Role: models.RoleUser}
		q := NewQuotaState(user, 20, 5)

		q.RecordSend()
		q.Refresh(20, 3)
		assert.Equal(t, 3, q.Remaining)

		// The pending decrement was discarded
		q.RevertSend()
		assert.Equal(t, 3, q.Remaining)
	})

	t.Run("admins and contractors are unlimited", func(t *testing.T) {
		for _, role := range []string{models.RoleAdmin, models.RoleContractor} {
			q := NewQuotaState(&models.User{ID: "x", Role: role}, 20, 0)
			assert.True(t, q.Unlimited)
			assert.Equal(t, -1, q.Limit)
			assert.Equal(t, -1, q.Remaining)
			assert.True(t, q.CanSend())

			q.RecordSend()
			assert.Equal(t, -1, q.Remaining)
		}
	})

	t.Run("negative remaining clamps to zero", func(t *testing.T) {
		user := &models.User{ID: "u1", Role: models.RoleUser}
		q := NewQuotaState(user, 20, -3)
		assert.Equal(t, 0, q.Remaining)
		assert.False(t, q.CanSend())
	})
}
