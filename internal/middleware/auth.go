package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxAuthLen  = 4096
	identityKey = "identity"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "RS_ERROR", "message": message})
}

// AuthMiddleware resolves the bearer token into an Identity. The stored session
// copy is not consulted.
func AuthMiddleware(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) > maxAuthLen {
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		tokenStr := strings.TrimSpace(authHeader)
		if parts := strings.SplitN(tokenStr, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenStr = strings.TrimSpace(parts[1])
		}
		if tokenStr == "" {
			abort(c, http.StatusBadRequest, "Token Not Provided")
			return
		}

		identity, err := IdentityFromToken(issuer, tokenStr)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abort(c, http.StatusUnauthorized, "Token has expired")
				return
			}
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(identityKey, identity)
		c.Set("user_id", identity.ID.Hex())
		c.Set("role", string(identity.Role))
		c.Next()
	}
}

// IdentityFromToken parses tokenStr and converts its claims.
func IdentityFromToken(issuer *auth.Issuer, tokenStr string) (models.Identity, error) {
	claims, err := issuer.Parse(tokenStr)
	if err != nil {
		return models.Identity{}, err
	}
	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return models.Identity{}, auth.ErrTokenInvalid
	}
	return models.Identity{
		ID:        id,
		Role:      claims.Role,
		Email:     claims.Email,
		FirstName: claims.FirstName,
	}, nil
}

// CurrentIdentity returns the caller set by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}
