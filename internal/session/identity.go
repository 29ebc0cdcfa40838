package session

import (
	"sync"

	"chat-client/internal/models"
)

// Identity is the signed-in user as far as the client knows it. The backend
// only reveals the user's id indirectly, so the id can be learned after
// startup and is shared by every component that attributes messages.
type Identity struct {
	mu       sync.RWMutex
	userID   int
	username string
}

func NewIdentity(userID int, username string) *Identity {
	return &Identity{userID: userID, username: username}
}

// UserID returns the known user id, zero when not learned yet.
func (i *Identity) UserID() int {
	if i == nil {
		return 0
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.userID
}

func (i *Identity) Username() string {
	if i == nil {
		return ""
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.username
}

// Learn records userID if no id is known yet. It reports whether the id
// changed.
func (i *Identity) Learn(userID int) bool {
	if i == nil || userID <= 0 {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.userID != 0 {
		return false
	}
	i.userID = userID
	return true
}

// LearnFromConversations infers the id from conversations the user takes
// part in. A participant carrying the user's name wins, names being unique
// on the backend; otherwise the single participant common to every
// conversation is used.
func (i *Identity) LearnFromConversations(convs []models.Conversation) bool {
	if i == nil || i.UserID() != 0 || len(convs) == 0 {
		return false
	}
	return i.Learn(InferUserID(convs, i.Username()))
}

// Owns reports whether a message sent by senderID is the user's own.
func (i *Identity) Owns(senderID int) bool {
	id := i.UserID()
	return id != 0 && senderID == id
}

// InferUserID returns the id of the user behind convs, or zero when it
// cannot be told.
func InferUserID(convs []models.Conversation, username string) int {
	if username != "" {
		for _, c := range convs {
			for _, p := range c.Participants {
				if p.DisplayName == username && p.ID > 0 {
					return p.ID
				}
			}
		}
	}

	if len(convs) == 0 {
		return 0
	}
	common := map[int]bool{}
	for _, p := range convs[0].Participants {
		common[p.ID] = true
	}
	for _, c := range convs[1:] {
		seen := map[int]bool{}
		for _, p := range c.Participants {
			if common[p.ID] {
				seen[p.ID] = true
			}
		}
		common = seen
	}
	if len(common) != 1 {
		return 0
	}
	for id := range common {
		return id
	}
	return 0
}
