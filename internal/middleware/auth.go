package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"markethub/internal/auth"
	"markethub/internal/models"
	"markethub/internal/session"
)

const (
	// SessionCookie carries the opaque session token.
	SessionCookie = "session_token"

	identityKey = "identity"
	tokenKey    = "session_token"
)

// SessionMiddleware resolves the session token from the cookie (or a Bearer
// header) into an identity. Missing or expired sessions fall through as
// anonymous; routes that require auth gate separately.
func SessionMiddleware(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token == "" {
			c.Next()
			return
		}

		ident, err := store.Resolve(c.Request.Context(), token)
		if err != nil {
			// Session store is down; treat as anonymous rather than failing
			// every request.
			log.Printf("session resolve failed: %v", err)
			c.Next()
			return
		}
		if ident != nil {
			c.Set(identityKey, ident)
			c.Set(tokenKey, token)
		}
		c.Next()
	}
}

// Identity returns the authenticated identity, or nil for anonymous callers.
func Identity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	ident, _ := v.(*models.Identity)
	return ident
}

// Token returns the resolved session token, if any.
func Token(c *gin.Context) string {
	v, ok := c.Get(tokenKey)
	if !ok {
		return ""
	}
	t, _ := v.(string)
	return t
}

// RequireAuth aborts anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Identity(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin aborts unless the identity carries the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := Identity(c)
		if ident == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if d := auth.IsAdmin(ident); !d.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access only"})
			return
		}
		c.Next()
	}
}
