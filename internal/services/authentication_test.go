package services

import (
	"testing"
	"time"

	"hamsterhub/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticationRoundTrip(t *testing.T) {
	auth, err := NewAuthentication("secret")
	require.NoError(t, err)

	avatar := "a_123"
	token, err := auth.CreateToken(&models.SessionUser{ID: "80351110224678912", Username: "nelly", GlobalName: "Nelly", Avatar: &avatar})
	require.NoError(t, err)

	user, err := auth.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "80351110224678912", user.ID)
	assert.Equal(t, "nelly", user.Username)
	assert.Equal(t, "Nelly", user.GlobalName)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, avatar, *user.Avatar)
}

func TestAuthenticationRejectsOtherSecret(t *testing.T) {
	a, _ := NewAuthentication("one")
	b, _ := NewAuthentication("two")

	token, err := a.CreateToken(&models.SessionUser{ID: "1"})
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.Error(t, err)
}

func TestAuthenticationRejectsExpired(t *testing.T) {
	auth, _ := NewAuthentication("secret")
	auth.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	token, err := auth.CreateToken(&models.SessionUser{ID: "1"})
	require.NoError(t, err)

	auth.now = time.Now
	_, err = auth.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAuthenticationRejectsMissingSubject(t *testing.T) {
	auth, _ := NewAuthentication("secret")
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = auth.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticationRejectsNoneAlg(t *testing.T) {
	auth, _ := NewAuthentication("secret")
	claims := jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.Validate(token)
	assert.Error(t, err)

	_, err = NewAuthentication("")
	assert.Error(t, err)
}
