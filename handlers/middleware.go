package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"uikitstore/identity"
	"uikitstore/logger"
	"uikitstore/storefront"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxAppKey = "storefront_app"
	ctxSIDKey = "sid"
)

// RequestID tags each request with an id, reusing the client's header when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(string(logger.RequestIDKey), id)
		c.Header(requestIDHeader, id)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Logger logs every request with the structured logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.Info(c.Request.Context(), "HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Session resolves the tab's session cookie to its App. A tab without a valid
// cookie gets a fresh anonymous session. A newly created App is hydrated from
// the identity bound to the sid, so sessions survive restarts and eviction.
func (h *Handler) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := ""
		if raw, err := c.Cookie(sessionCookie); err == nil {
			if claims, err := h.tokens.Parse(raw); err == nil {
				sid = claims.SID
			}
		}
		if sid == "" {
			sid = identity.NewSessionID()
			if err := h.issueSession(c, sid, ""); err != nil {
				respondError(c, err)
				c.Abort()
				return
			}
		}

		ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, sid)
		c.Request = c.Request.WithContext(ctx)

		app, created := h.registry.GetOrCreate(sid)
		if created {
			if theme, err := c.Cookie(themeCookie); err == nil {
				app.SetTheme(storefront.ParseTheme(theme))
			}
			id, err := h.sessions.Current(ctx, sid)
			if err != nil {
				logger.Warn(ctx, "Failed to restore session identity", zap.Error(err))
			} else if id != nil {
				app.OnAuthStateChanged(ctx, id)
			}
		}
		app.Touch()

		c.Set(ctxSIDKey, sid)
		c.Set(ctxAppKey, app)
		c.Next()
	}
}

func (h *Handler) issueSession(c *gin.Context, sid, uid string) error {
	token, err := h.tokens.Issue(sid, uid)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(h.cookieTTL.Seconds()), "/", "", h.secureCookies, true)
	return nil
}

func appFrom(c *gin.Context) *storefront.App {
	return c.MustGet(ctxAppKey).(*storefront.App)
}
