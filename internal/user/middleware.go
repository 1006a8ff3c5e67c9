package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/photo-tournament-backend/pkg/token"
)

const (
	CookieName    = "photo_user_id"
	CookieMaxAge  = 30 * 24 * 60 * 60
	sessionCtxKey = "session"
)

// EnsureSessionMiddleware makes sure every request carries a signed session
// cookie, minting a new identity when the cookie is absent or does not
// verify. The resolved session is stored in the gin context.
func EnsureSessionMiddleware(svc *Service, signer *token.Signer, secure bool, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		raw, err := c.Cookie(CookieName)
		if err == nil {
			verified, verr := signer.Verify(raw)
			if verr == nil && IsValidID(verified) {
				id = verified
			} else {
				log.Debug("rejecting session cookie", "error", verr)
			}
		} else if !errors.Is(err, http.ErrNoCookie) {
			log.Debug("unreadable session cookie", "error", err)
		}

		if id == "" {
			id, err = NewID()
			if err != nil {
				log.Error("failed to mint session id", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieName, signer.Sign(id), CookieMaxAge, "/", "", secure, true)
		}

		session, err := svc.GetSession(c.Request.Context(), id)
		if err != nil {
			log.Error("failed to load session", "user_id", id, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}
		SetSession(c, session)
		c.Next()
	}
}

// FromContext returns the session stored by EnsureSessionMiddleware.
func FromContext(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// SetSession attaches s to the request.
func SetSession(c *gin.Context, s Session) {
	c.Set(sessionCtxKey, s)
}
