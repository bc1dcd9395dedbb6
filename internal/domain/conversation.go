package domain

import (
	"strings"
	"time"
)

// Message roles as stored on disk and returned by the API.
const (
	RoleUser      = "User"
	RoleAssistant = "Assistant"
)

const (
	// MaxStoredMessages is the per-conversation cap retained by the store.
	MaxStoredMessages = 50
	// MaxHistoryMessages is how many recent messages go into the prompt.
	MaxHistoryMessages = 5
	// MaxTitleLength bounds conversation titles derived from the first user message.
	MaxTitleLength = 50

	DefaultTitle = "New Chat"
)

// Message is a single chat turn.
type Message struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Conversation is a named sequence of messages owned by a user.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Title          string    `json:"title"`
	Messages       []Message `json:"messages"`
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	MessageCount   int       `json:"message_count"`
}

// UserConversations is the on-disk per-user document.
type UserConversations struct {
	UserID        string                   `json:"user_id"`
	Conversations map[string]*Conversation `json:"conversations"`
	LastUpdated   time.Time                `json:"last_updated"`
}

// TitleFromMessages derives a conversation title from the first user message.
func TitleFromMessages(messages []Message) string {
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		title := strings.TrimSpace(msg.Text)
		if title == "" {
			break
		}
		if len(title) > MaxTitleLength {
			title = title[:MaxTitleLength]
		}
		return title
	}
	return DefaultTitle
}

// CapMessages trims a message list to the retention limit, keeping the tail.
func CapMessages(messages []Message) []Message {
	if len(messages) > MaxStoredMessages {
		return messages[len(messages)-MaxStoredMessages:]
	}
	return messages
}
