package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uni-ombuds/case-api/internal/middleware"
	"github.com/uni-ombuds/case-api/internal/models"
)

// currentActor resolves the acting user from the request context. Routes
// behind the JWT middleware always carry claims; elsewhere the zero actor
// marks a system-originated action.
func currentActor(c *gin.Context) models.Actor {
	if value, ok := c.Get(middleware.ContextUserKey); ok {
		if claims, ok := value.(*models.JWTClaims); ok {
			return models.Actor{ID: claims.UserID, Role: claims.Role}
		}
	}
	return models.Actor{}
}
