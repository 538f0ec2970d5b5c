package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"uikitstore/identity"
	"uikitstore/logger"
	"uikitstore/storefront"
	"uikitstore/views"
)

const (
	sessionCookie = "session"
	themeCookie   = "theme"
	themeMaxAge   = 365 * 24 * 60 * 60
)

// SessionLookup restores the identity bound to a session id.
type SessionLookup interface {
	Current(ctx context.Context, sid string) (*identity.Identity, error)
}

type Options struct {
	CookieTTL     time.Duration
	SecureCookies bool
}

// Handler serves the storefront pages and the command endpoint.
type Handler struct {
	registry      *storefront.Registry
	renderer      *views.Renderer
	tokens        *identity.Tokens
	sessions      SessionLookup
	cookieTTL     time.Duration
	secureCookies bool
}

func NewHandler(registry *storefront.Registry, renderer *views.Renderer, tokens *identity.Tokens, sessions SessionLookup, opts Options) *Handler {
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = 7 * 24 * time.Hour
	}
	return &Handler{
		registry:      registry,
		renderer:      renderer,
		tokens:        tokens,
		sessions:      sessions,
		cookieTTL:     opts.CookieTTL,
		secureCookies: opts.SecureCookies,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.registry.Len()})
}

func (h *Handler) Script(c *gin.Context) {
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", views.Script)
}

// Index renders the full page. A full load re-fetches the catalog, the
// signed-in user's documents and the data of the current page.
func (h *Handler) Index(c *gin.Context) {
	app := appFrom(c)
	ctx := c.Request.Context()

	app.Refresh(ctx)
	page := app.Snapshot().Page
	switch page {
	case storefront.PageDetail:
	case storefront.PageNone:
		_, _ = app.Navigate(ctx, storefront.PageHome)
	default:
		_, _ = app.Navigate(ctx, page)
	}

	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, app.Snapshot()); err != nil {
		logger.Error(ctx, "Failed to render page", zap.Error(err))
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// View returns every region of the current state.
func (h *Handler) View(c *gin.Context) {
	app := appFrom(c)
	frags, err := h.renderer.Fragments(app.Snapshot())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": frags})
}

// run executes fn and answers with the regions it changed. The previous
// flash is cleared first so each response shows only its own message.
func (h *Handler) run(c *gin.Context, fn func(ctx context.Context, app *storefront.App) (gin.H, error)) {
	app := appFrom(c)
	ctx := c.Request.Context()

	prev, err := h.renderer.Fragments(app.Snapshot())
	if err != nil {
		respondError(c, err)
		return
	}
	app.ClearFlash()

	extra, actErr := fn(ctx, app)

	snap := app.Snapshot()
	next, err := h.renderer.Fragments(snap)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{"ok": actErr == nil, "patch": views.Diff(prev, next)}
	for k, v := range extra {
		body[k] = v
	}
	if actErr != nil {
		status, code, message := classify(actErr)
		body["code"] = code
		body["message"] = message
		c.JSON(status, body)
		return
	}
	if snap.Flash != nil {
		body["message"] = snap.Flash.Message
	}
	c.JSON(http.StatusOK, body)
}

type signInRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest)
		return
	}
	h.run(c, func(ctx context.Context, app *storefront.App) (gin.H, error) {
		if err := app.SignIn(ctx, req.InitData); err != nil {
			return nil, err
		}
		uid := ""
		if s := app.Snapshot(); s.Session != nil {
			uid = s.Session.UID
		}
		if err := h.issueSession(c, app.SID(), uid); err != nil {
			logger.Error(ctx, "Failed to reissue session cookie", zap.Error(err))
		}
		return nil, nil
	})
}

func (h *Handler) SignOut(c *gin.Context) {
	h.run(c, func(ctx context.Context, app *storefront.App) (gin.H, error) {
		if err := app.SignOut(ctx); err != nil {
			return nil, err
		}
		if err := h.issueSession(c, app.SID(), ""); err != nil {
			logger.Error(ctx, "Failed to reissue session cookie", zap.Error(err))
		}
		return nil, nil
	})
}

// Upload accepts the admin upload form.
func (h *Handler) Upload(c *gin.Context) {
	var form storefront.UploadForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, errBadRequest)
		return
	}
	h.run(c, func(ctx context.Context, app *storefront.App) (gin.H, error) {
		return nil, app.Upload(ctx, form)
	})
}

// Theme flips the theme and persists it in the theme cookie.
func (h *Handler) Theme(c *gin.Context) {
	h.run(c, func(_ context.Context, app *storefront.App) (gin.H, error) {
		theme := app.ToggleTheme()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(themeCookie, string(theme), themeMaxAge, "/", "", h.secureCookies, false)
		return gin.H{"theme": theme}, nil
	})
}
