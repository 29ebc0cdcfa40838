package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chat-client/internal/models"
	"chat-client/internal/rabbitmq"
)

// Activity event names.
const (
	EventConversationStarted = "conversation_started"
	EventMessageSent         = "message_sent"
	EventMessageFailed       = "message_failed"
	EventUploadFailed        = "upload_failed"
)

// ActivityEmitter publishes client activity envelopes.
type ActivityEmitter struct {
	publisher  rabbitmq.Publisher
	routingKey string
	client     string
	log        logrus.FieldLogger
}

func NewActivityEmitter(publisher rabbitmq.Publisher, routingKey, client string, log logrus.FieldLogger) *ActivityEmitter {
	return &ActivityEmitter{
		publisher:  publisher,
		routingKey: routingKey,
		client:     client,
		log:        log,
	}
}

// Emit publishes one event. Publish failures are logged, never returned.
// A nil emitter is a no-op.
func (e *ActivityEmitter) Emit(ctx context.Context, name, requestID string, userID int, payload map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := models.ActivityEnvelope{
		SchemaVersion: 1,
		EventID:       uuid.NewString(),
		EventType:     "chat_client_activity",
		EventName:     name,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Client:        e.client,
		RequestID:     requestID,
		Payload:       payload,
	}
	if userID != 0 {
		envelope.UserID = &userID
	}

	if err := e.publisher.Publish(ctx, e.routingKey+"."+name, envelope); err != nil && e.log != nil {
		e.log.WithFields(logrus.Fields{"event": name, "request_id": requestID, "error": err}).Warn("activity publish failed")
	}
}
