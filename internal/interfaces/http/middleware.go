package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

const identityKey = "identity"

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// authMiddleware resolves the caller from the session cookie or a bearer
// credential and stores the identity on the context. A bearer exchange
// that opens a session sets the session cookie.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(s.cookie.Name)

		res, err := s.identity.Resolve(c.Request.Context(), token, bearerToken(c.Request))
		if err != nil {
			abortWithError(c, err)
			return
		}

		if res.NewSession {
			setSessionCookie(c, s.cookie, res.Session.Token)
		}

		c.Set(identityKey, res.Identity)
		c.Next()
	}
}

// currentIdentity returns the identity stored by authMiddleware
func currentIdentity(c *gin.Context) entity.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(entity.Identity)
	return identity
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func setSessionCookie(c *gin.Context, cfg CookieConfig, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, token, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)
}

func clearSessionCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, "", -1, "/", "", cfg.Secure, true)
}
