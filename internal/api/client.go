package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/session"
)

const maxErrorBody = 4 << 10

type requestIDKey struct{}

// WithRequestID pins the X-Request-ID used by the next call made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id pinned on ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client talks to the chat REST backend on behalf of one session.
type Client struct {
	baseURL    string
	session    session.Session
	httpClient *http.Client
}

// NewClient constructs the wrapper. A nil httpClient gets an instrumented
// client with the given timeout.
func NewClient(baseURL string, s session.Session, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: observability.NewInstrumentedTransport(nil),
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    s,
		httpClient: httpClient,
	}
}

// Session returns the session the client was built with.
func (c *Client) Session() session.Session {
	return c.session
}

// ListConversations returns the caller's conversations in backend order.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/conversations/", nil, &raw); err != nil {
		return nil, err
	}
	return decodeConversationList(raw), nil
}

// decodeConversationList accepts a bare array or a paginated envelope.
// Anything else is treated as an empty list.
func decodeConversationList(raw json.RawMessage) []models.Conversation {
	var list []models.Conversation
	if err := json.Unmarshal(raw, &list); err == nil && list != nil {
		return list
	}
	var page struct {
		Results []models.Conversation `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err == nil && page.Results != nil {
		return page.Results
	}
	return []models.Conversation{}
}

// GetConversation fetches one conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := c.do(ctx, http.MethodGet, "/conversations/"+strconv.Itoa(conversationID)+"/", nil, &conv)
	return conv, err
}

// SendMessage posts a message to an existing conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID int, msg models.OutgoingMessage) (models.Message, error) {
	var created models.Message
	err := c.do(ctx, http.MethodPost, "/conversations/"+strconv.Itoa(conversationID)+"/send_message/", msg, &created)
	return created, err
}

// SendMessageToUser sends a first message to a user; the backend allocates
// the conversation and returns its id.
func (c *Client) SendMessageToUser(ctx context.Context, recipientID int, text string) (models.StartedConversation, error) {
	body := struct {
		RecipientID int    `json:"recipient_id"`
		Text        string `json:"text"`
	}{RecipientID: recipientID, Text: text}

	var started models.StartedConversation
	err := c.do(ctx, http.MethodPost, "/send_message_to_user/", body, &started)
	return started, err
}

// SearchUsers performs the server-side partial name search.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	users := []models.User{}
	err := c.do(ctx, http.MethodGet, "/search-users/?q="+url.QueryEscape(query), nil, &users)
	return users, err
}

// GetProfile returns the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodGet, "/profile/", nil, &profile)
	return profile, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if !c.session.Valid() {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Authorization", c.session.AuthorizationHeader())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}
