package thread

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/api"
	"chat-client/internal/attachment"
	"chat-client/internal/fakebackend"
	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/session"
)

const sendRoute = "POST /conversations/:id/send_message/"
const fetchRoute = "GET /conversations/:id/"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func setupBackend(t *testing.T) (*fakebackend.Backend, *View) {
	t.Helper()
	return setupBackendAs(t, session.NewIdentity(1, "alice"))
}

func setupBackendAs(t *testing.T, identity *session.Identity) (*fakebackend.Backend, *View) {
	t.Helper()
	backend := fakebackend.New()
	backend.AddUser(1, "alice", "tok-alice")
	backend.AddUser(2, "bob", "")
	backend.AddConversation(1, 1, 2)
	backend.AddMessage(1, 2, "first")
	backend.AddMessage(1, 1, "second")
	backend.AddMessage(1, 2, "third")

	srv := backend.Serve()
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, session.FromToken("tok-alice", "Token"), nil, 5*time.Second)
	view := NewView(client, attachment.StubUploader{}, attachment.NewPipeline(1024), nil, identity, logrus.New())
	return backend, view
}

func bodies(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body())
	}
	return out
}

func TestOpenAndLoadFetchesOnce(t *testing.T) {
	backend, view := setupBackend(t)

	view.Open(1)
	require.NoError(t, view.Load(context.Background()))

	assert.Equal(t, 1, backend.Calls(fetchRoute))
	assert.Equal(t, []string{"first", "second", "third"}, bodies(view.Messages()))
	assert.Equal(t, 1, view.Conversation().ID)
}

func TestLoadIsIdempotent(t *testing.T) {
	_, view := setupBackend(t)
	view.Open(1)

	require.NoError(t, view.Load(context.Background()))
	first := view.Messages()
	require.NoError(t, view.Load(context.Background()))

	assert.Equal(t, first, view.Messages())
}

func TestLoadWithoutConversation(t *testing.T) {
	_, view := setupBackend(t)

	assert.ErrorIs(t, view.Load(context.Background()), ErrNoConversation)
}

func TestLoadFailureKeepsSnapshot(t *testing.T) {
	backend, view := setupBackend(t)
	view.Open(1)
	require.NoError(t, view.Load(context.Background()))

	backend.FailNext(fetchRoute, 1)
	err := view.Load(context.Background())

	require.Error(t, err)
	assert.True(t, api.IsNetworkOrServer(err))
	assert.Len(t, view.Messages(), 3)
}

func TestEmptySendIsNoop(t *testing.T) {
	apiMock := new(mocks.ChatAPIMock)
	uploader := new(mocks.UploaderMock)
	view := NewView(apiMock, uploader, attachment.NewPipeline(1024), nil, session.NewIdentity(1, "alice"), logrus.New())
	view.Open(1)
	view.SetText("   ")

	sent, err := view.Send(context.Background())

	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, Idle, view.State())
	apiMock.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestTextOnlySend(t *testing.T) {
	backend, view := setupBackend(t)
	view.Open(1)
	require.NoError(t, view.Load(context.Background()))
	view.SetText("  hello ")
	assert.Equal(t, Composing, view.State())

	sent, err := view.Send(context.Background())

	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, 1, backend.Calls(sendRoute))
	last := backend.LastSend()
	assert.Equal(t, "hello", last["text"])
	require.Contains(t, last, "image_url")
	assert.Nil(t, last["image_url"])

	assert.Equal(t, Idle, view.State())
	assert.Empty(t, view.Text())
	assert.Equal(t, "hello", view.Messages()[3].Body())
	assert.Equal(t, 2, backend.Calls(fetchRoute))
}

func TestAttachmentOnlySend(t *testing.T) {
	apiMock := new(mocks.ChatAPIMock)
	uploader := new(mocks.UploaderMock)
	view := NewView(apiMock, uploader, attachment.NewPipeline(1024), nil, session.NewIdentity(1, "alice"), logrus.New())
	view.Open(1)

	file, err := view.AttachFile("cat.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	url := "https://cdn.example/cat.png"
	uploader.On("Upload", mock.Anything, file).Return(url, nil).Once()
	apiMock.On("SendMessage", mock.Anything, 1, mock.MatchedBy(func(msg models.OutgoingMessage) bool {
		return msg.Text == nil && msg.ImageURL != nil && *msg.ImageURL == url
	})).Return(models.Message{ID: 9, ImageURL: &url}, nil).Once()
	apiMock.On("GetConversation", mock.Anything, 1).
		Return(models.Conversation{ID: 1, Messages: []models.Message{{ID: 9, ImageURL: &url}}}, nil).Once()

	sent, err := view.Send(context.Background())

	require.NoError(t, err)
	assert.True(t, sent)
	uploader.AssertExpectations(t)
	apiMock.AssertExpectations(t)
	_, ok := view.Pending()
	assert.False(t, ok)
	assert.True(t, view.Messages()[0].HasImage())
}

func TestFailedSendRestoresDraft(t *testing.T) {
	backend, view := setupBackend(t)
	view.Open(1)
	require.NoError(t, view.Load(context.Background()))
	view.SetText("hello")

	backend.FailNext(sendRoute, 1)
	sent, err := view.Send(context.Background())

	require.Error(t, err)
	assert.False(t, sent)
	assert.True(t, api.IsNetworkOrServer(err))
	assert.Equal(t, "hello", view.Text())
	assert.Equal(t, Composing, view.State())
	assert.Len(t, view.Messages(), 3)
	assert.Equal(t, 1, backend.Calls(fetchRoute), "no reload after a failed send")
}

func TestUploadFailureSkipsMessageCreate(t *testing.T) {
	apiMock := new(mocks.ChatAPIMock)
	uploader := new(mocks.UploaderMock)
	view := NewView(apiMock, uploader, attachment.NewPipeline(1024), nil, session.NewIdentity(1, "alice"), logrus.New())
	view.Open(1)
	view.SetText("look")
	_, err := view.AttachFile("cat.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	uploader.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("bucket offline")).Once()

	sent, err := view.Send(context.Background())

	assert.False(t, sent)
	assert.ErrorIs(t, err, attachment.ErrUploadFailed)
	apiMock.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, "look", view.Text())
	_, ok := view.Pending()
	assert.True(t, ok)
	assert.Equal(t, Composing, view.State())
}

func TestSendWhileSendingIsRejected(t *testing.T) {
	apiMock := new(mocks.ChatAPIMock)
	view := NewView(apiMock, attachment.StubUploader{}, attachment.NewPipeline(1024), nil, session.NewIdentity(1, "alice"), logrus.New())
	view.Open(1)
	view.SetText("hello")

	release := make(chan struct{})
	apiMock.On("SendMessage", mock.Anything, 1, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(models.Message{ID: 1}, nil).Once()
	apiMock.On("GetConversation", mock.Anything, 1).Return(models.Conversation{ID: 1}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := view.Send(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return view.State() == Sending }, time.Second, 5*time.Millisecond)

	sent, err := view.Send(context.Background())
	assert.False(t, sent)
	assert.ErrorIs(t, err, ErrSendInProgress)
	assert.Equal(t, "hello", view.Text(), "draft retained while sending")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Idle, view.State())
	apiMock.AssertExpectations(t)
}

func TestSendWithoutConversation(t *testing.T) {
	apiMock := new(mocks.ChatAPIMock)
	view := NewView(apiMock, attachment.StubUploader{}, attachment.NewPipeline(1024), nil, session.NewIdentity(1, "alice"), logrus.New())
	view.SetText("hello")

	_, err := view.Send(context.Background())

	assert.ErrorIs(t, err, ErrNoConversation)
	assert.Equal(t, Composing, view.State())
}

func TestOpenDiscardsDraftAndSnapshot(t *testing.T) {
	_, view := setupBackend(t)
	view.Open(1)
	require.NoError(t, view.Load(context.Background()))
	view.SetText("draft")
	_, err := view.AttachFile("cat.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	view.Open(2)

	assert.Empty(t, view.Text())
	_, ok := view.Pending()
	assert.False(t, ok)
	assert.Empty(t, view.Messages())
	assert.Equal(t, Idle, view.State())
	assert.Equal(t, 2, view.ConversationID())
}

func TestRemoveAttachment(t *testing.T) {
	_, view := setupBackend(t)
	view.Open(1)
	_, err := view.AttachFile("cat.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, Composing, view.State())

	view.RemoveAttachment()

	_, ok := view.Pending()
	assert.False(t, ok)
	assert.Equal(t, Idle, view.State())
}

func TestIsMineComparesIDs(t *testing.T) {
	_, view := setupBackend(t)

	assert.True(t, view.IsMine(models.Message{Sender: models.User{ID: 1, DisplayName: "someone"}}))
	assert.False(t, view.IsMine(models.Message{Sender: models.User{ID: 2, DisplayName: "alice"}}))

	anonymous := NewView(nil, nil, nil, nil, nil, logrus.New())
	assert.False(t, anonymous.IsMine(models.Message{Sender: models.User{ID: 0}}))
}

func TestSendLearnsUserIDFromReply(t *testing.T) {
	identity := session.NewIdentity(0, "")
	_, view := setupBackendAs(t, identity)
	view.Open(1)
	require.NoError(t, view.Load(context.Background()))
	require.Zero(t, identity.UserID(), "two participants, no name to tell them apart")
	assert.False(t, view.IsMine(view.Messages()[1]))

	view.SetText("hello")
	sent, err := view.Send(context.Background())

	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, 1, identity.UserID())
	msgs := view.Messages()
	assert.True(t, view.IsMine(msgs[1]))
	assert.True(t, view.IsMine(msgs[3]))
	assert.False(t, view.IsMine(msgs[0]))
}

func TestLoadLearnsUserIDFromUsername(t *testing.T) {
	identity := session.NewIdentity(0, "alice")
	_, view := setupBackendAs(t, identity)
	view.Open(1)

	require.NoError(t, view.Load(context.Background()))

	assert.Equal(t, 1, identity.UserID())
	assert.True(t, view.IsMine(view.Messages()[1]))
}

func TestLateLoadAfterOpenIsDropped(t *testing.T) {
	apiMock := new(mocks.ChatAPIMock)
	view := NewView(apiMock, attachment.StubUploader{}, attachment.NewPipeline(1024), nil, session.NewIdentity(1, "alice"), logrus.New())
	view.Open(1)

	release := make(chan struct{})
	started := make(chan struct{})
	stale := models.Conversation{ID: 1, Messages: []models.Message{{ID: 5, Sender: models.User{ID: 2}}}}
	apiMock.On("GetConversation", mock.Anything, 1).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(stale, nil).Once()

	done := make(chan error, 1)
	go func() { done <- view.Load(context.Background()) }()
	<-started

	view.Open(2)
	close(release)

	require.NoError(t, <-done)
	assert.Empty(t, view.Messages())
	assert.Zero(t, view.Conversation().ID)
	assert.Equal(t, 2, view.ConversationID())
	apiMock.AssertExpectations(t)
}

func TestLateSendAfterOpenKeepsNewDraft(t *testing.T) {
	apiMock := new(mocks.ChatAPIMock)
	view := NewView(apiMock, attachment.StubUploader{}, attachment.NewPipeline(1024), nil, session.NewIdentity(1, "alice"), logrus.New())
	view.Open(1)
	view.SetText("for one")

	release := make(chan struct{})
	apiMock.On("SendMessage", mock.Anything, 1, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(models.Message{ID: 8, Sender: models.User{ID: 1}}, nil).Once()

	done := make(chan bool, 1)
	go func() {
		sent, _ := view.Send(context.Background())
		done <- sent
	}()
	require.Eventually(t, func() bool { return view.State() == Sending }, time.Second, 5*time.Millisecond)

	view.Open(2)
	view.SetText("for two")
	close(release)

	assert.True(t, <-done)
	assert.Equal(t, "for two", view.Text())
	assert.Equal(t, Composing, view.State())
	assert.Empty(t, view.Messages())
	assert.Equal(t, 2, view.ConversationID())
	apiMock.AssertNotCalled(t, "GetConversation", mock.Anything, mock.Anything)
}
