package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func TestGenerateAndValidateJWT(t *testing.T) {
	userID := primitive.NewObjectID()

	token, err := GenerateJWT(userID, true, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	parsed, err := claims.ObjectID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT(primitive.NewObjectID(), false, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(primitive.NewObjectID(), false, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(token, testSecret)
	assert.Error(t, err)
}

func TestClaims_ObjectIDRejectsGarbage(t *testing.T) {
	c := &Claims{UserID: "not-an-id"}
	_, err := c.ObjectID()
	assert.Error(t, err)
}
