package models

import (
	"strings"
	"time"
)

// Conversation is a direct-message thread. Messages is only populated by the
// single-conversation endpoint.
type Conversation struct {
	ID           int       `json:"id"`
	Participants []User    `json:"participants"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Title joins participant names the way the directory lists them.
func (c Conversation) Title() string {
	names := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		names = append(names, p.DisplayName)
	}
	return strings.Join(names, ", ")
}

// HasParticipant reports whether userID takes part in the conversation.
func (c Conversation) HasParticipant(userID int) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// StartedConversation is the backend's reply to a send-to-user request.
type StartedConversation struct {
	ConversationID int `json:"conversation_id"`
}
