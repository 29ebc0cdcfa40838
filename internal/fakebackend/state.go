// Package fakebackend serves the chat REST contract from memory. It backs the
// client's integration tests.
package fakebackend

import (
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"chat-client/internal/models"
)

// Backend holds users, conversations and per-route call counts.
type Backend struct {
	mu            sync.Mutex
	users         map[int]models.User
	tokens        map[string]int
	conversations []*models.Conversation
	nextConvID    int
	nextMsgID     int
	calls         map[string]int
	failures      map[string]int
	lastSend      map[string]any
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		users:      make(map[int]models.User),
		tokens:     make(map[string]int),
		nextConvID: 1,
		nextMsgID:  1,
		calls:      make(map[string]int),
		failures:   make(map[string]int),
	}
}

// AddUser registers a user reachable through token.
func (b *Backend) AddUser(id int, name, token string) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := models.User{ID: id, DisplayName: name}
	b.users[id] = u
	if token != "" {
		b.tokens[token] = id
	}
	return u
}

// AddConversation seeds a conversation between the given users.
func (b *Backend) AddConversation(id int, userIDs ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conv := &models.Conversation{ID: id, CreatedAt: time.Now().UTC()}
	for _, uid := range userIDs {
		conv.Participants = append(conv.Participants, b.users[uid])
	}
	b.conversations = append([]*models.Conversation{conv}, b.conversations...)
	if id >= b.nextConvID {
		b.nextConvID = id + 1
	}
}

// AddMessage seeds a message in a conversation.
func (b *Backend) AddMessage(conversationID, senderID int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conv := b.findLocked(conversationID)
	if conv == nil {
		return
	}
	b.appendLocked(conv, senderID, models.NewOutgoingMessage(text, ""))
}

// FailNext makes the next n calls to route answer 500.
func (b *Backend) FailNext(route string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = n
}

// Calls returns how many times route was hit. Routes are the gin patterns,
// e.g. "GET /conversations/:id/".
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// LastSend returns the JSON body of the last message-create call.
func (b *Backend) LastSend() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSend
}

// Serve starts the backend on a test server. Close it when done.
func (b *Backend) Serve() *httptest.Server {
	return httptest.NewServer(b.Router())
}

func (b *Backend) findLocked(id int) *models.Conversation {
	for _, c := range b.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (b *Backend) appendLocked(conv *models.Conversation, senderID int, msg models.OutgoingMessage) models.Message {
	created := models.Message{
		ID:        b.nextMsgID,
		Sender:    b.users[senderID],
		Text:      msg.Text,
		ImageURL:  msg.ImageURL,
		CreatedAt: time.Now().UTC(),
	}
	b.nextMsgID++
	conv.Messages = append(conv.Messages, created)
	return created
}

func (b *Backend) searchLocked(query string) []models.User {
	result := []models.User{}
	q := strings.ToLower(query)
	for id := 1; len(result) < 10 && id <= b.maxUserIDLocked(); id++ {
		u, ok := b.users[id]
		if ok && strings.Contains(strings.ToLower(u.DisplayName), q) {
			result = append(result, u)
		}
	}
	return result
}

func (b *Backend) maxUserIDLocked() int {
	max := 0
	for id := range b.users {
		if id > max {
			max = id
		}
	}
	return max
}
