package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/rabbitmq"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewActivityEmitter(publisher, "chat.client", "chat-client", logrus.New())

	var got models.ActivityEnvelope
	publisher.On("Publish", mock.Anything, "chat.client.message_sent", mock.AnythingOfType("models.ActivityEnvelope")).
		Run(func(args mock.Arguments) { got = args.Get(2).(models.ActivityEnvelope) }).
		Return(nil).Once()

	emitter.Emit(context.Background(), EventMessageSent, "req-1", 7, map[string]any{"conversation_id": 3})

	publisher.AssertExpectations(t)
	assert.Equal(t, "message_sent", got.EventName)
	assert.Equal(t, "chat_client_activity", got.EventType)
	assert.Equal(t, "req-1", got.RequestID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, 7, *got.UserID)
	assert.NotEmpty(t, got.EventID)
}

func TestEmitLogsPublishFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	NewActivityEmitter(publisher, "chat.client", "chat-client", logger).Emit(context.Background(), EventUploadFailed, "", 0, nil)

	assert.Contains(t, buf.String(), "activity publish failed")
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *ActivityEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), EventMessageSent, "", 0, nil)
	})
}

func TestEmitThroughFallbackPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	publisher := rabbitmq.NewPublisher("", "chat.client", logger)
	defer publisher.Close()
	NewActivityEmitter(publisher, "chat.client", "chat-client", logger).Emit(context.Background(), EventConversationStarted, "req-2", 1, nil)

	assert.Contains(t, buf.String(), "activity event not published")
	assert.Contains(t, buf.String(), "conversation_started")
	assert.Contains(t, buf.String(), "req-2")
}
