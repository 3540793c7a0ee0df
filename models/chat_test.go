package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderRefUnmarshalPlainID(t *testing.T) {
	var ref SenderRef
	require.NoError(t, json.Unmarshal([]byte(`"user-42"`), &ref))
	assert.Equal(t, "user-42", ref.ID)
	assert.Empty(t, ref.Username)
}

func TestSenderRefUnmarshalEmbeddedSummary(t *testing.T) {
	payload := `{"id":"user-42","username":"alice","picture":"a.png"}`

	var ref SenderRef
	require.NoError(t, json.Unmarshal([]byte(payload), &ref))
	assert.Equal(t, "user-42", ref.ID)
	assert.Equal(t, "alice", ref.Username)
	assert.Equal(t, "a.png", ref.Picture)
}

func TestSenderRefUnmarshalInsideMessage(t *testing.T) {
	payload := `{
		"id": "m1",
		"sender_id": "admin",
		"receiver_id": "user-42",
		"text": "hello",
		"timestamp": "2025-06-01T09:00:00Z",
		"is_read": false
	}`

	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	assert.Equal(t, "admin", msg.Sender.ID)
	assert.Equal(t, "user-42", msg.ReceiverID)
}

func TestSenderRefUnmarshalRejectsGarbage(t *testing.T) {
	var ref SenderRef
	assert.Error(t, json.Unmarshal([]byte(`42`), &ref))
}

func TestChatIdentity(t *testing.T) {
	admin := &User{ID: "staff-1", Role: RoleAdmin}
	assert.Equal(t, AdminUserID, admin.ChatIdentity())

	user := &User{ID: "u1", Role: RoleUser}
	assert.Equal(t, "u1", user.ChatIdentity())

	contractor := &User{ID: "c1", Role: RoleContractor}
	assert.Equal(t, "c1", contractor.ChatIdentity())
}

func TestHasUnlimitedMessages(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).HasUnlimitedMessages())
	assert.True(t, (&User{Role: RoleContractor}).HasUnlimitedMessages())
	assert.False(t, (&User{Role: RoleUser}).HasUnlimitedMessages())
}
