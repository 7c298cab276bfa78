package middleware

import (
	"strings"

	"creditshop/pkg/errutil"
	"creditshop/pkg/identity"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// Authenticate resolves the bearer token into an identity.Identity stored on
// both the gin context and the request context.
func Authenticate(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			_ = c.Error(errutil.Unauthorized("No token provided", nil))
			c.Abort()
			return
		}

		id, err := svc.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			_ = c.Error(errutil.Unauthorized("Invalid or expired token", err))
			c.Abort()
			return
		}

		c.Set(IdentityKey, *id)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), *id))
		c.Next()
	}
}

// Authorize checks the caller's role against the route pattern and method.
func Authorize(enforcer *casbin.Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			_ = c.Error(errutil.Unauthorized("Authentication required", nil))
			c.Abort()
			return
		}

		allowed, err := enforcer.Enforce(id.Role, c.FullPath(), c.Request.Method)
		if err != nil {
			_ = c.Error(errutil.Internal("authorization failed", err))
			c.Abort()
			return
		}
		if !allowed {
			_ = c.Error(errutil.Forbidden("Insufficient permissions", nil))
			c.Abort()
			return
		}

		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}
