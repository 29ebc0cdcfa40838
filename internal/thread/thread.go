// Package thread holds the message snapshot of the active conversation and
// the composer that sends into it.
package thread

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chat-client/internal/api"
	"chat-client/internal/attachment"
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
)

var (
	ErrNoConversation = errors.New("no active conversation")
	ErrSendInProgress = errors.New("send already in progress")
)

// State is the composer state.
type State int

const (
	Idle State = iota
	Composing
	Sending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Composing:
		return "composing"
	case Sending:
		return "sending"
	default:
		return "unknown"
	}
}

// API is the part of the backend the thread view talks to.
type API interface {
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	SendMessage(ctx context.Context, conversationID int, msg models.OutgoingMessage) (models.Message, error)
}

type View struct {
	mu       sync.Mutex
	api      API
	uploader attachment.Uploader
	pipeline *attachment.Pipeline
	emitter  *telemetry.ActivityEmitter
	log      logrus.FieldLogger
	identity *session.Identity

	conversationID int
	// generation changes on every Open so late responses for a previous
	// conversation are dropped.
	generation   int
	conversation models.Conversation
	messages     []models.Message

	text    string
	pending *models.PendingAttachment
	state   State
}

func NewView(client API, uploader attachment.Uploader, pipeline *attachment.Pipeline, emitter *telemetry.ActivityEmitter, identity *session.Identity, log logrus.FieldLogger) *View {
	return &View{
		api:      client,
		uploader: uploader,
		pipeline: pipeline,
		emitter:  emitter,
		log:      log,
		identity: identity,
	}
}

// Open switches to conversationID, discarding the snapshot and the draft.
// Call Load to fetch it.
func (v *View) Open(conversationID int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conversationID = conversationID
	v.generation++
	v.conversation = models.Conversation{}
	v.messages = nil
	v.clearDraftLocked()
	v.state = Idle
}

// Load fetches the active conversation and replaces the snapshot. On failure
// the previous snapshot is kept.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	id, gen := v.conversationID, v.generation
	v.mu.Unlock()
	if id <= 0 {
		return ErrNoConversation
	}

	requestID := api.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = api.WithRequestID(ctx, requestID)
	}
	conv, err := v.api.GetConversation(ctx, id)
	if err != nil {
		v.log.WithFields(logrus.Fields{"conversation_id": id, "request_id": requestID, "error": err}).Error("load conversation failed")
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generation != gen {
		return nil
	}
	v.conversation = conv
	v.messages = conv.Messages
	if v.identity.LearnFromConversations([]models.Conversation{conv}) {
		v.log.WithField("user_id", v.identity.UserID()).Info("user id learned from conversation")
	}
	return nil
}

// SetText replaces the draft text. Ignored while a send is in flight.
func (v *View) SetText(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Sending {
		return
	}
	v.text = text
	v.updateStateLocked()
}

// Attach sets the pending attachment, replacing any previous one.
func (v *View) Attach(file models.PendingAttachment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Sending {
		return
	}
	v.pending = &file
	v.updateStateLocked()
}

// AttachFile reads an image through the pipeline and attaches it.
func (v *View) AttachFile(name string, r io.Reader) (models.PendingAttachment, error) {
	file, err := v.pipeline.Select(name, r)
	if err != nil {
		return models.PendingAttachment{}, err
	}
	v.Attach(file)
	return file, nil
}

func (v *View) RemoveAttachment() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Sending {
		return
	}
	v.pending = nil
	if v.pipeline != nil {
		v.pipeline.Cancel()
	}
	v.updateStateLocked()
}

// Send uploads the pending attachment if any, creates the message and
// reloads the thread. An empty draft is a no-op reported as (false, nil).
// On failure the draft is kept for another attempt. A true result with an
// error means the message was created but the reload failed.
func (v *View) Send(ctx context.Context) (bool, error) {
	v.mu.Lock()
	if v.state == Sending {
		v.mu.Unlock()
		return false, ErrSendInProgress
	}
	text := v.text
	var pending *models.PendingAttachment
	if v.pending != nil {
		file := *v.pending
		pending = &file
	}
	if strings.TrimSpace(text) == "" && pending == nil {
		v.mu.Unlock()
		return false, nil
	}
	id, gen := v.conversationID, v.generation
	if id <= 0 {
		v.mu.Unlock()
		return false, ErrNoConversation
	}
	v.state = Sending
	v.mu.Unlock()

	requestID := uuid.NewString()
	ctx = api.WithRequestID(ctx, requestID)
	logger := v.log.WithFields(logrus.Fields{"conversation_id": id, "request_id": requestID})

	var imageURL string
	if pending != nil {
		url, err := v.uploader.Upload(ctx, *pending)
		if err != nil {
			if !errors.Is(err, attachment.ErrUploadFailed) {
				err = fmt.Errorf("%w: %w", attachment.ErrUploadFailed, err)
			}
			logger.WithError(err).Error("attachment upload failed")
			observability.IncSend("upload_failed")
			v.emitter.Emit(ctx, telemetry.EventUploadFailed, requestID, v.identity.UserID(), map[string]any{"conversation_id": id})
			v.restore(gen)
			return false, err
		}
		imageURL = url
	}

	created, err := v.api.SendMessage(ctx, id, models.NewOutgoingMessage(text, imageURL))
	if err != nil {
		logger.WithError(err).Error("send message failed")
		observability.IncSend("error")
		v.emitter.Emit(ctx, telemetry.EventMessageFailed, requestID, v.identity.UserID(), map[string]any{"conversation_id": id})
		v.restore(gen)
		return false, err
	}
	observability.IncSend("ok")
	if v.identity.Learn(created.Sender.ID) {
		logger.WithField("user_id", created.Sender.ID).Info("user id learned from sent message")
	}
	v.emitter.Emit(ctx, telemetry.EventMessageSent, requestID, v.identity.UserID(), map[string]any{
		"conversation_id": id,
		"has_image":       imageURL != "",
	})

	v.mu.Lock()
	current := v.generation == gen
	if current {
		v.clearDraftLocked()
		v.state = Idle
	}
	v.mu.Unlock()
	if !current {
		return true, nil
	}

	if err := v.Load(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// IsMine reports whether msg was sent by the session user. Until the user id
// is known nothing is considered mine.
func (v *View) IsMine(msg models.Message) bool {
	return v.identity.Owns(msg.Sender.ID)
}

// Messages returns the snapshot in backend order.
func (v *View) Messages() []models.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *View) Conversation() models.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conversation
}

func (v *View) ConversationID() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conversationID
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *View) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.text
}

func (v *View) Pending() (models.PendingAttachment, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending == nil {
		return models.PendingAttachment{}, false
	}
	return *v.pending, true
}

func (v *View) restore(gen int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generation != gen {
		return
	}
	v.state = Idle
	v.updateStateLocked()
}

func (v *View) clearDraftLocked() {
	v.text = ""
	v.pending = nil
	if v.pipeline != nil {
		v.pipeline.Cancel()
	}
}

func (v *View) updateStateLocked() {
	if strings.TrimSpace(v.text) != "" || v.pending != nil {
		v.state = Composing
		return
	}
	v.state = Idle
}
