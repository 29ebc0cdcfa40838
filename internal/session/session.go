package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"chat-client/internal/repositories"
)

// TokenKey is the local storage slot holding the auth token.
const TokenKey = "token"

// Session is the authenticated identity passed explicitly to every API
// constructor.
type Session struct {
	Token    string
	Scheme   string
	UserID   int
	Username string
}

type claims struct {
	UserID   any    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// FromToken builds a session for token. JWT tokens seed the identity from
// their claims; opaque tokens leave it empty.
func FromToken(token, scheme string) Session {
	s := Session{Token: strings.TrimSpace(token), Scheme: scheme}
	if s.Scheme == "" {
		s.Scheme = "Token"
	}
	if s.Token == "" {
		return s
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &c); err != nil {
		return s
	}
	s.UserID = claimUserID(c)
	s.Username = c.Username
	return s
}

func claimUserID(c claims) int {
	switch v := c.UserID.(type) {
	case float64:
		return int(v)
	case string:
		if id, err := strconv.Atoi(v); err == nil {
			return id
		}
	}
	if id, err := strconv.Atoi(c.Subject); err == nil {
		return id
	}
	return 0
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return s.Token != ""
}

// AuthorizationHeader returns the header value for authenticated calls.
func (s Session) AuthorizationHeader() string {
	return s.Scheme + " " + s.Token
}

// WithIdentity fills in the user id and name when they are not known yet.
func (s Session) WithIdentity(userID int, username string) Session {
	if s.UserID == 0 {
		s.UserID = userID
	}
	if s.Username == "" {
		s.Username = username
	}
	return s
}

// Load reads the stored token. A missing token yields an invalid session.
func Load(ctx context.Context, storage repositories.LocalStorage, scheme string) (Session, error) {
	token, err := storage.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return Session{Scheme: scheme}, nil
		}
		return Session{}, fmt.Errorf("load token: %w", err)
	}
	return FromToken(token, scheme), nil
}

// Save stores the session token.
func Save(ctx context.Context, storage repositories.LocalStorage, s Session) error {
	if !s.Valid() {
		return storage.Remove(ctx, TokenKey)
	}
	return storage.Set(ctx, TokenKey, s.Token)
}
