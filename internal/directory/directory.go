// Package directory keeps the conversation list, the active conversation and
// the user search used to start new conversations.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chat-client/internal/api"
	"chat-client/internal/models"
	"chat-client/internal/recent"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
)

// MinQueryLength is the shortest trimmed query sent to the backend.
const MinQueryLength = 2

var ErrCreateFailed = errors.New("conversation creation failed")

// API is the part of the backend the directory talks to.
type API interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	SendMessageToUser(ctx context.Context, recipientID int, text string) (models.StartedConversation, error)
}

type Directory struct {
	mu            sync.Mutex
	api           API
	searches      *recent.Searches
	emitter       *telemetry.ActivityEmitter
	log           logrus.FieldLogger
	identity      *session.Identity
	conversations []models.Conversation
	activeID      int
}

func New(client API, searches *recent.Searches, emitter *telemetry.ActivityEmitter, identity *session.Identity, log logrus.FieldLogger) *Directory {
	return &Directory{
		api:      client,
		searches: searches,
		emitter:  emitter,
		log:      log,
		identity: identity,
	}
}

// List refreshes the conversations in backend order. On failure the cached
// list is emptied and the error returned.
func (d *Directory) List(ctx context.Context) ([]models.Conversation, error) {
	requestID := uuid.NewString()
	convs, err := d.api.ListConversations(api.WithRequestID(ctx, requestID))

	if err == nil && d.identity.LearnFromConversations(convs) {
		d.log.WithField("user_id", d.identity.UserID()).Info("user id learned from conversations")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.conversations = nil
		d.log.WithFields(logrus.Fields{"request_id": requestID, "error": err}).Error("list conversations failed")
		return nil, err
	}
	d.conversations = convs
	return d.copyLocked(), nil
}

// Conversations returns the cached list.
func (d *Directory) Conversations() []models.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.copyLocked()
}

// Search looks users up. Short queries return an empty result without a
// call. Failures also yield an empty result; the error is returned only so
// the caller can show it. Searching alone does not touch the history, see
// Remember.
func (d *Directory) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []models.User{}, nil
	}

	requestID := uuid.NewString()
	users, err := d.api.SearchUsers(api.WithRequestID(ctx, requestID), query)
	if err != nil {
		d.log.WithFields(logrus.Fields{"query": query, "request_id": requestID, "error": err}).Warn("user search failed")
		return []models.User{}, err
	}

	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// StartConversation sends firstText to targetUserID, making the returned
// conversation active. A non-nil error with a positive id means the
// conversation exists but the refresh that followed failed.
func (d *Directory) StartConversation(ctx context.Context, targetUserID int, firstText string) (int, error) {
	firstText = strings.TrimSpace(firstText)
	if targetUserID <= 0 {
		return 0, fmt.Errorf("%w: invalid recipient %d", ErrCreateFailed, targetUserID)
	}
	if firstText == "" {
		return 0, fmt.Errorf("%w: empty first message", ErrCreateFailed)
	}

	requestID := uuid.NewString()
	ctx = api.WithRequestID(ctx, requestID)
	started, err := d.api.SendMessageToUser(ctx, targetUserID, firstText)
	if err != nil {
		d.log.WithFields(logrus.Fields{"recipient_id": targetUserID, "request_id": requestID, "error": err}).Error("start conversation failed")
		return 0, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	if started.ConversationID <= 0 {
		return 0, fmt.Errorf("%w: backend returned no conversation id", ErrCreateFailed)
	}

	d.Select(started.ConversationID)
	d.emitter.Emit(ctx, telemetry.EventConversationStarted, requestID, d.identity.UserID(), map[string]any{
		"conversation_id": started.ConversationID,
		"recipient_id":    targetUserID,
	})

	convs, err := d.List(ctx)
	if err != nil {
		return started.ConversationID, err
	}
	d.learnFromStarted(convs, started.ConversationID, targetUserID)
	return started.ConversationID, nil
}

// Remember records term in the recent searches. It is called when a search
// result is picked, not on every query.
func (d *Directory) Remember(ctx context.Context, term string) {
	if d.searches == nil {
		return
	}
	if err := d.searches.Add(ctx, term); err != nil {
		d.log.WithError(err).Warn("saving recent search failed")
	}
}

// learnFromStarted takes the one participant of a new two-person
// conversation who is not the recipient as the signed-in user.
func (d *Directory) learnFromStarted(convs []models.Conversation, conversationID, recipientID int) {
	for _, c := range convs {
		if c.ID != conversationID || len(c.Participants) != 2 {
			continue
		}
		for _, p := range c.Participants {
			if p.ID != recipientID && d.identity.Learn(p.ID) {
				d.log.WithField("user_id", p.ID).Info("user id learned from new conversation")
			}
		}
	}
}

// Select makes id the active conversation.
func (d *Directory) Select(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeID = id
}

// Active returns the active conversation id, zero when none.
func (d *Directory) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeID
}

func (d *Directory) Recent() []string {
	if d.searches == nil {
		return nil
	}
	return d.searches.List()
}

func (d *Directory) copyLocked() []models.Conversation {
	out := make([]models.Conversation, len(d.conversations))
	copy(out, d.conversations)
	return out
}
