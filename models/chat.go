package models

import (
	"encoding/json"
	"time"
)

// SenderRef identifies the sender of a chat message. Older records store
// a plain id string while newer ones embed a user summary, so the JSON
// codec accepts both shapes.
type SenderRef struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// UnmarshalJSON accepts either a bare id string or an embedded summary
// object
func (s *SenderRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*s = SenderRef{ID: id}
		return nil
	}

	type senderAlias SenderRef
	var alias senderAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*s = SenderRef(alias)
	return nil
}

// ChatMessage represents one message in a support conversation. Exactly
// one of sender/receiver is the admin pseudo-user.
type ChatMessage struct {
	ID         string    `json:"id"`
	Sender     SenderRef `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

// ChatThread is the full conversation between one regular user and the
// admin pseudo-user. The thread id equals the user's id.
type ChatThread struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"user_id"`
	UserName             string        `json:"user_name"`
	UserAvatar           string        `json:"user_avatar,omitempty"`
	Messages             []ChatMessage `json:"messages"`
	LastMessageTimestamp time.Time     `json:"last_message_timestamp"`
}

// SendChatMessageRequest is the request body for sending a chat message.
// ReceiverID is only honoured for admin senders; regular users always
// message the admin pseudo-user.
type SendChatMessageRequest struct {
	Text       string `json:"text" binding:"required,min=1,max=1000"`
	ReceiverID string `json:"receiver_id"`
}

// ChatLimitResponse reports the daily message quota. Both fields are -1
// for users exempt from the quota.
type ChatLimitResponse struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}
