package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uninotes-api/internal/models"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of roles.
// It must run after JWT, which resolves the role from the stored account.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
