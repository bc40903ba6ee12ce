package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(now time.Time) *JWTService {
	s := NewJWTService(JWTConfig{SecretKey: "secret", AccessTokenExp: time.Hour, TokenIssuer: "fitchallenge"})
	s.now = func() time.Time { return now }
	return s
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s := newService(now)
	user := User{ID: uuid.New(), DisplayName: "Alice"}

	token, err := s.Issue(user)
	require.NoError(t, err)

	identity, err := SessionIdentity(s, token)
	require.NoError(t, err)
	assert.Equal(t, user, identity.CurrentUser())
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	token, err := newService(issuedAt).Issue(User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = newService(issuedAt.Add(2 * time.Hour)).Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsForeignSignatureAndSubject(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s := newService(now)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "fitchallenge"})
	other.now = s.now
	forged, err := other.Issue(User{ID: uuid.New()})
	require.NoError(t, err)
	_, err = s.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		Issuer:    "fitchallenge",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Verify(bad)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyFallsBackToUsername(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	claims := &Claims{
		UserMetadata: UserMetadata{Username: "bob"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Issuer:    "fitchallenge",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	user, err := newService(now).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, User{ID: id, DisplayName: "bob"}, user)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	for _, header := range []string{"", "abc", "Basic abc", "Bearer "} {
		_, err := ExtractBearerToken(header)
		assert.ErrorIs(t, err, ErrInvalidFormat, header)
	}
}
