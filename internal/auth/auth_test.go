package auth

import (
	"testing"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testUser() *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Role:      models.RoleAgent,
		FirstName: "Dana",
		Email:     "dana@example.com",
	}
}

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", 2*time.Hour)
	user := testUser()

	token, err := iss.Issue(user)
	require.NoError(t, err)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.ID)
	assert.Equal(t, models.RoleAgent, claims.Role)
	assert.Equal(t, "Dana", claims.FirstName)
	assert.Equal(t, "dana@example.com", claims.Email)
	assert.NotEmpty(t, claims.Random)
}

func TestIssueProducesDistinctTokens(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	user := testUser()

	a, err := iss.Issue(user)
	require.NoError(t, err)
	b, err := iss.Issue(user)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseExpired(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	iss.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	token, err := iss.Issue(testUser())
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseInvalid(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	other := NewIssuer("other", time.Hour)
	token, err := other.Issue(testUser())
	require.NoError(t, err)

	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = iss.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	claims := Claims{ID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("plaintext", "plaintext"))
}
