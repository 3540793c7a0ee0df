package services

import (
	"sort"
	"time"

	"github.com/chu-duc-anh/imnovelteam/models"
)

// MessageMergeWindow is the maximum gap between two consecutive messages
// from the same sender for them to render as one block. A larger gap also
// inserts a timestamp header before the later message.
const MessageMergeWindow = 10 * time.Minute

// MessageBlock is one chat message annotated with its rendering position
// inside a block of consecutive same-sender messages
type MessageBlock struct {
	Message             models.ChatMessage `json:"message"`
	IsFirstInBlock      bool               `json:"is_first_in_block"`
	IsLastInBlock       bool               `json:"is_last_in_block"`
	ShowTimestampHeader bool               `json:"show_timestamp_header"`
}

// ResolveSenderID normalizes the sender reference of a message, which may
// have been stored as a plain id or an embedded user summary, to a single
// comparable id
func ResolveSenderID(msg models.ChatMessage) string {
	return msg.Sender.ID
}

// GroupIntoBlocks annotates messages (pre-sorted ascending by timestamp)
// for avatar and timestamp collapsing. Grouping never reorders or alters
// the messages themselves.
func GroupIntoBlocks(messages []models.ChatMessage) []MessageBlock {
	blocks := make([]MessageBlock, 0, len(messages))
	for i, msg := range messages {
		sender := ResolveSenderID(msg)

		first := i == 0
		if !first {
			prev := messages[i-1]
			first = ResolveSenderID(prev) != sender ||
				msg.Timestamp.Sub(prev.Timestamp) > MessageMergeWindow
		}

		last := i == len(messages)-1
		if !last {
			next := messages[i+1]
			last = ResolveSenderID(next) != sender ||
				next.Timestamp.Sub(msg.Timestamp) > MessageMergeWindow
		}

		header := i == 0 ||
			msg.Timestamp.Sub(messages[i-1].Timestamp) > MessageMergeWindow

		blocks = append(blocks, MessageBlock{
			Message:             msg,
			IsFirstInBlock:      first,
			IsLastInBlock:       last,
			ShowTimestampHeader: header,
		})
	}
	return blocks
}

// UnreadCountForThread counts messages in the thread addressed to the
// viewer that have not been read yet
func UnreadCountForThread(thread models.ChatThread, viewerID string) int {
	count := 0
	for _, msg := range thread.Messages {
		if msg.ReceiverID == viewerID && !msg.IsRead {
			count++
		}
	}
	return count
}

// TotalUnreadForViewer aggregates unread counts across threads. Admins see
// the sum over every thread; a regular user sees only their own thread
// with the admin, or 0 if it does not exist yet.
func TotalUnreadForViewer(threads []models.ChatThread, viewer *models.User) int {
	if viewer == nil {
		return 0
	}

	viewerID := viewer.ChatIdentity()
	if viewer.IsAdmin() {
		total := 0
		for _, thread := range threads {
			total += UnreadCountForThread(thread, viewerID)
		}
		return total
	}

	for _, thread := range threads {
		if thread.ID == viewer.ID {
			return UnreadCountForThread(thread, viewerID)
		}
	}
	return 0
}

// SortThreadsByRecency returns a copy of threads ordered by last message
// timestamp, newest first
func SortThreadsByRecency(threads []models.ChatThread) []models.ChatThread {
	sorted := make([]models.ChatThread, len(threads))
	copy(sorted, threads)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastMessageTimestamp.After(sorted[j].LastMessageTimestamp)
	})
	return sorted
}

// QuotaState tracks the viewer's daily message allowance between
// authoritative fetches. Sends decrement the count optimistically; a
// failed send reverts the decrement; a fresh fetch replaces the state
// wholesale. The server remains the source of truth.
type QuotaState struct {
	Limit     int
	Remaining int
	Unlimited bool

	pending int
}

// NewQuotaState builds the quota view for a viewer. Admins and
// contractors are unlimited regardless of the reported numbers.
func NewQuotaState(viewer *models.User, limit, remaining int) QuotaState {
	if viewer != nil && viewer.HasUnlimitedMessages() {
		return QuotaState{Limit: -1, Remaining: -1, Unlimited: true}
	}
	if remaining < 0 {
		remaining = 0
	}
	return QuotaState{Limit: limit, Remaining: remaining}
}

// CanSend reports whether the viewer may send another message right now
func (q *QuotaState) CanSend() bool {
	return q.Unlimited || q.Remaining > 0
}

// RecordSend applies the optimistic decrement after a successful send
func (q *QuotaState) RecordSend() {
	if q.Unlimited || q.Remaining <= 0 {
		return
	}
	q.Remaining--
	q.pending++
}

// RevertSend undoes one speculative decrement after a failed send
func (q *QuotaState) RevertSend() {
	if q.Unlimited || q.pending == 0 {
		return
	}
	q.pending--
	q.Remaining++
}

// Refresh replaces the state with authoritative numbers from the server,
// discarding any speculative decrements
func (q *QuotaState) Refresh(limit, remaining int) {
	if q.Unlimited {
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	q.Limit = limit
	q.Remaining = remaining
	q.pending = 0
}
