package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uni-ombuds/case-api/internal/service"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/response"
)

// ContextUserKey is the gin context key storing the verified JWT claims.
const ContextUserKey = "currentUser"

// JWT rejects requests without a valid bearer token and stores the verified
// claims for handlers to resolve the acting staff member.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
