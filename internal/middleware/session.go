package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/access"
	"bookmarket/internal/apperr"
	"bookmarket/internal/security"
)

const (
	SessionCookie = "session"

	identityKey = "session_identity"
)

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Secure bool
	MaxAge int
}

func AttachSession(c *gin.Context, token string, opts CookieOptions) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, token, opts.MaxAge, "/", "", opts.Secure, true)
}

func ClearSession(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", opts.Secure, true)
}

// Session resolves the session cookie into an identity when it verifies.
// Requests without a valid session continue anonymously.
func Session(issuer *security.SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil {
			if identity, ok := issuer.Verify(token); ok {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			abortWithError(c, apperr.Authentication("authentication required"))
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return security.Identity{}, false
	}
	identity, ok := v.(security.Identity)
	return identity, ok
}

// CurrentCaller is the anonymous caller when no session was resolved.
func CurrentCaller(c *gin.Context) access.Caller {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return access.Caller{}
	}
	return access.FromIdentity(identity)
}
