package session

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/mocks"
	"chat-client/internal/repositories"
)

func TestFromOpaqueToken(t *testing.T) {
	s := FromToken(" 9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b ", "")

	assert.True(t, s.Valid())
	assert.Equal(t, "Token", s.Scheme)
	assert.Equal(t, 0, s.UserID)
	assert.Equal(t, "Token 9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", s.AuthorizationHeader())
}

func TestFromJWTToken(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  42,
		"username": "alice",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	s := FromToken(signed, "Bearer")

	assert.Equal(t, 42, s.UserID)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "Bearer "+signed, s.AuthorizationHeader())
}

func TestFromJWTSubject(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	assert.Equal(t, 7, FromToken(signed, "Bearer").UserID)
}

func TestEmptyTokenIsInvalid(t *testing.T) {
	assert.False(t, FromToken("   ", "Token").Valid())
}

func TestWithIdentityKeepsKnownValues(t *testing.T) {
	s := Session{Token: "t", UserID: 3}.WithIdentity(9, "bob")

	assert.Equal(t, 3, s.UserID)
	assert.Equal(t, "bob", s.Username)
}

func TestLoadMissingToken(t *testing.T) {
	storage := new(mocks.LocalStorageMock)
	storage.On("Get", mock.Anything, TokenKey).Return("", repositories.ErrKeyNotFound).Once()

	s, err := Load(context.Background(), storage, "Token")

	require.NoError(t, err)
	assert.False(t, s.Valid())
	storage.AssertExpectations(t)
}

func TestLoadStorageError(t *testing.T) {
	storage := new(mocks.LocalStorageMock)
	storage.On("Get", mock.Anything, TokenKey).Return("", assert.AnError).Once()

	_, err := Load(context.Background(), storage, "Token")

	assert.ErrorIs(t, err, assert.AnError)
}

func TestSaveAndClear(t *testing.T) {
	storage := new(mocks.LocalStorageMock)
	storage.On("Set", mock.Anything, TokenKey, "abc").Return(nil).Once()
	storage.On("Remove", mock.Anything, TokenKey).Return(nil).Once()

	require.NoError(t, Save(context.Background(), storage, Session{Token: "abc"}))
	require.NoError(t, Save(context.Background(), storage, Session{}))
	storage.AssertExpectations(t)
}
