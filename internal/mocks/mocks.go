package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
	"chat-client/internal/repositories"
)

type ChatAPIMock struct {
	mock.Mock
}

func (m *ChatAPIMock) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ChatAPIMock) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ChatAPIMock) SendMessage(ctx context.Context, conversationID int, msg models.OutgoingMessage) (models.Message, error) {
	args := m.Called(ctx, conversationID, msg)
	var created models.Message
	if val := args.Get(0); val != nil {
		created = val.(models.Message)
	}
	return created, args.Error(1)
}

func (m *ChatAPIMock) SendMessageToUser(ctx context.Context, recipientID int, text string) (models.StartedConversation, error) {
	args := m.Called(ctx, recipientID, text)
	var started models.StartedConversation
	if val := args.Get(0); val != nil {
		started = val.(models.StartedConversation)
	}
	return started, args.Error(1)
}

func (m *ChatAPIMock) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, file models.PendingAttachment) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

// PublisherMock stands in for the activity event publisher.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	return m.Called().Error(0)
}

type LocalStorageMock struct {
	mock.Mock
}

func (m *LocalStorageMock) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *LocalStorageMock) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *LocalStorageMock) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var _ repositories.LocalStorage = (*LocalStorageMock)(nil)
var _ interface {
	ListConversations(context.Context) ([]models.Conversation, error)
	GetConversation(context.Context, int) (models.Conversation, error)
	SendMessage(context.Context, int, models.OutgoingMessage) (models.Message, error)
	SendMessageToUser(context.Context, int, string) (models.StartedConversation, error)
	SearchUsers(context.Context, string) ([]models.User, error)
} = (*ChatAPIMock)(nil)
var _ interface {
	Upload(context.Context, models.PendingAttachment) (string, error)
} = (*UploaderMock)(nil)
