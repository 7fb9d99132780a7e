package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "ataraxia/internal/errors"
)

const UserIDContextKey = "userID"

// TokenParser resolves a bearer token to the account it was issued for.
type TokenParser interface {
	ParseToken(token string) (string, *apperrors.APIError)
}

// Auth rejects requests without a valid bearer token and stores the token
// subject under UserIDContextKey.
func Auth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c.GetHeader("Authorization"))
		if apiErr != nil {
			abort(c, apiErr)
			return
		}

		userID, apiErr := tokens.ParseToken(token)
		if apiErr != nil {
			abort(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Next()
	}
}

func bearerToken(header string) (string, *apperrors.APIError) {
	if header == "" {
		return "", apperrors.Unauthorized("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

// UserID is the account id set by Auth, or "" outside an authenticated route.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDContextKey)
}

func abort(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, apperrors.Envelope{Error: apiErr})
}
