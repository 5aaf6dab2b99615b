package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	userID := primitive.NewObjectID()

	token, err := manager.GenerateToken(userID, "farmer@cropwise.vn", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "farmer@cropwise.vn", claims.Email)
	assert.True(t, claims.IsExpert)
}

func TestJWTExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken(primitive.NewObjectID(), "x@y.z", false)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTWrongSecret(t *testing.T) {
	manager := NewJWTManager("secret-a", time.Hour)
	token, err := manager.GenerateToken(primitive.NewObjectID(), "x@y.z", false)
	require.NoError(t, err)

	other := NewJWTManager("secret-b", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
