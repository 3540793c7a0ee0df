package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/chu-duc-anh/imnovelteam/models"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeChatMessage is sent when a new chat message is posted
	MessageTypeChatMessage MessageType = "chat_message"
	// MessageTypeThreadRead is sent when a participant marks a thread read
	MessageTypeThreadRead MessageType = "thread_read"
	// MessageTypeCommentAdded is sent to all clients when a comment is created
	MessageTypeCommentAdded MessageType = "comment_added"
	// MessageTypeSettingsUpdate is sent when admin changes a site setting
	MessageTypeSettingsUpdate MessageType = "settings_update"
	// MessageTypeError is sent when an error occurs
	MessageTypeError MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// ChatMessagePayload carries a new chat message together with the thread
// it belongs to
type ChatMessagePayload struct {
	ThreadID string             `json:"thread_id"`
	Message  models.ChatMessage `json:"message"`
}

// ThreadReadPayload tells the other participant their messages were read
type ThreadReadPayload struct {
	ThreadID string `json:"thread_id"`
	ReaderID string `json:"reader_id"`
}

// CommentAddedPayload announces a freshly created comment
type CommentAddedPayload struct {
	StoryID   string          `json:"story_id"`
	ChapterID *string         `json:"chapter_id,omitempty"`
	Comment   *models.Comment `json:"comment"`
}

// Hub maintains the set of active clients and routes messages to them
type Hub struct {
	// Connected clients per user id; a user may hold several tabs
	clients map[string]map[*Client]bool

	// Clients with the admin role, for support chat fan-out
	admins map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast to all clients
	broadcast chan []byte

	// Send to every connection of one user
	sendToUser chan *UserMessage

	// Send to every admin connection
	sendToAdmins chan []byte

	mutex sync.RWMutex
}

// UserMessage is a message targeted at a specific user
type UserMessage struct {
	UserID  string
	Message []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]map[*Client]bool),
		admins:       make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan []byte),
		sendToUser:   make(chan *UserMessage),
		sendToAdmins: make(chan []byte),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			if client.role == models.RoleAdmin {
				h.admins[client] = true
			}
			h.mutex.Unlock()
			log.Printf("WebSocket: Client connected - %s (%s)", client.userID, client.username)

		case client := <-h.unregister:
			h.mutex.Lock()
			if conns, ok := h.clients[client.userID]; ok && conns[client] {
				h.drop(client)
				log.Printf("WebSocket: Client disconnected - %s (%s)", client.userID, client.username)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for _, conns := range h.clients {
				for client := range conns {
					h.deliver(client, message)
				}
			}
			h.mutex.Unlock()

		case userMsg := <-h.sendToUser:
			h.mutex.Lock()
			for client := range h.clients[userMsg.UserID] {
				h.deliver(client, userMsg.Message)
			}
			h.mutex.Unlock()

		case message := <-h.sendToAdmins:
			h.mutex.Lock()
			for client := range h.admins {
				h.deliver(client, message)
			}
			h.mutex.Unlock()
		}
	}
}

// deliver pushes a message to one client, dropping the connection if its
// send buffer is full. Caller holds the write lock.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.drop(client)
	}
}

// drop removes a client from all indexes. Caller holds the write lock.
func (h *Hub) drop(client *Client) {
	if conns, ok := h.clients[client.userID]; ok && conns[client] {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.userID)
		}
		delete(h.admins, client)
		close(client.send)
	}
}

// BroadcastChatMessage delivers a chat message to the thread's user and
// to every connected admin
func (h *Hub) BroadcastChatMessage(threadUserID string, message models.ChatMessage) {
	data, ok := h.marshal(Message{
		Type:    MessageTypeChatMessage,
		Payload: ChatMessagePayload{ThreadID: threadUserID, Message: message},
	})
	if !ok {
		return
	}

	h.sendToUser <- &UserMessage{UserID: threadUserID, Message: data}
	h.sendToAdmins <- data
}

// BroadcastThreadRead tells both thread participants that the reader has
// caught up
func (h *Hub) BroadcastThreadRead(threadUserID, readerID string) {
	data, ok := h.marshal(Message{
		Type:    MessageTypeThreadRead,
		Payload: ThreadReadPayload{ThreadID: threadUserID, ReaderID: readerID},
	})
	if !ok {
		return
	}

	h.sendToUser <- &UserMessage{UserID: threadUserID, Message: data}
	h.sendToAdmins <- data
}

// BroadcastCommentAdded announces a new comment to all clients
func (h *Hub) BroadcastCommentAdded(comment *models.Comment) {
	data, ok := h.marshal(Message{
		Type: MessageTypeCommentAdded,
		Payload: CommentAddedPayload{
			StoryID:   comment.StoryID,
			ChapterID: comment.ChapterID,
			Comment:   comment,
		},
	})
	if !ok {
		return
	}

	h.broadcast <- data
}

// BroadcastSettingsUpdate sends the changed setting to all clients
func (h *Hub) BroadcastSettingsUpdate(setting *models.SiteSetting) {
	data, ok := h.marshal(Message{
		Type:    MessageTypeSettingsUpdate,
		Payload: setting,
	})
	if !ok {
		return
	}

	h.broadcast <- data
}

// IsUserConnected checks if a specific user has at least one connection
func (h *Hub) IsUserConnected(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetConnectedUserCount returns the number of distinct connected users
func (h *Hub) GetConnectedUserCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) marshal(msg Message) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket: Failed to marshal %s message: %v", msg.Type, err)
		return nil, false
	}
	return data, true
}
