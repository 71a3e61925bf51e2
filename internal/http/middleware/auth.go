// README: Session middleware; resolves the bearer token to a restored session and gates routes on it.
package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"semas/internal/modules/access"
	"semas/internal/modules/directory"
	"semas/internal/modules/session"
)

const (
	ctxSID     = "semas.sid"
	ctxSession = "semas.session"
)

// Auth attaches the caller's session when the request carries a valid bearer
// token. Requests without one continue anonymously.
func Auth(tokens *Tokens, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.Next()
			return
		}
		claims, err := tokens.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.Next()
			return
		}
		s, err := sessions.Open(c.Request.Context(), claims.SID)
		if err != nil {
			log.Printf("auth: open session: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session storage unavailable"})
			return
		}
		c.Set(ctxSID, claims.SID)
		c.Set(ctxSession, s)
		c.Next()
	}
}

// RequireSession rejects callers without an authenticated session and points them at the login view.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CallerUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "authentication required",
				"redirect": access.LoginPath,
			})
			return
		}
		c.Next()
	}
}

// RequireRole must run after RequireSession.
func RequireRole(roles ...directory.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CallerUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "redirect": access.LoginPath})
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// CallerSession returns the session attached by Auth, if any.
func CallerSession(c *gin.Context) (string, *session.Store, bool) {
	v, ok := c.Get(ctxSession)
	if !ok {
		return "", nil, false
	}
	s, ok := v.(*session.Store)
	if !ok {
		return "", nil, false
	}
	return c.GetString(ctxSID), s, true
}

// CallerUser returns the authenticated identity, if any.
func CallerUser(c *gin.Context) (directory.User, bool) {
	_, s, ok := CallerSession(c)
	if !ok {
		return directory.User{}, false
	}
	return s.Current()
}
