package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uikitstore/database"
	"uikitstore/identity"
	"uikitstore/models"
	"uikitstore/storefront"
	"uikitstore/views"
)

// fakeProvider binds any credential as the uid of the same name, except "bad".
type fakeProvider struct {
	mu    sync.Mutex
	bound map[string]*identity.Identity
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{bound: make(map[string]*identity.Identity)}
}

func (p *fakeProvider) SignIn(_ context.Context, sid, credential string) (*identity.Identity, error) {
	if credential == "bad" {
		return nil, identity.ErrInvalidCredential
	}
	id := &identity.Identity{UID: credential, Name: "User " + credential, Username: "user" + credential}
	p.mu.Lock()
	p.bound[sid] = id
	p.mu.Unlock()
	return id, nil
}

func (p *fakeProvider) SignOut(_ context.Context, sid string) error {
	p.mu.Lock()
	delete(p.bound, sid)
	p.mu.Unlock()
	return nil
}

func (p *fakeProvider) Current(_ context.Context, sid string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound[sid], nil
}

type server struct {
	router   *gin.Engine
	mem      *database.MemoryStore
	registry *storefront.Registry
}

func testListing(uiID, title string, usd int64) models.UI {
	return models.UI{
		UIID:     uiID,
		Title:    title,
		Desc:     title + " for product teams",
		Image:    "https://example.com/" + uiID + ".png",
		Category: "dashboards",
		Price:    models.Price{USD: decimal.NewFromInt(usd), GHC: decimal.NewFromInt(usd * 6)},
		Verified: true,
	}
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := database.NewMemoryStore()
	mem.AddAdmin("admin")
	_, err := database.SeedCatalog(context.Background(), mem, []models.UI{
		testListing("ui-10001", "Creative Dashboard Kit", 25),
		testListing("ui-10002", "Analytics Board", 30),
	})
	require.NoError(t, err)

	provider := newFakeProvider()
	moderation := storefront.NewModeration(mem, nil)
	registry := storefront.NewRegistry(func(sid string) *storefront.App {
		return storefront.New(sid, mem, provider, moderation, storefront.Options{DownloadBaseURL: "https://cdn.example.com/kits"})
	})
	renderer, err := views.NewRenderer()
	require.NoError(t, err)

	h := NewHandler(registry, renderer, identity.NewTokens("test-secret", time.Hour), provider, Options{})
	return &server{router: NewRouter(h, "*"), mem: mem, registry: registry}
}

// client keeps cookies between requests like a browser tab.
type client struct {
	t       *testing.T
	srv     *server
	cookies map[string]*http.Cookie
}

func (s *server) client(t *testing.T) *client {
	return &client{t: t, srv: s, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.srv.router.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) command(action, target string, args map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	payload, err := json.Marshal(map[string]any{"action": action, "target": target, "args": args})
	require.NoError(c.t, err)
	rec := c.do(http.MethodPost, "/api/commands", "application/json", string(payload))
	return rec, decode(c.t, rec)
}

func (c *client) signIn(uid string) {
	c.t.Helper()
	c.do(http.MethodGet, "/", "", "")
	rec := c.do(http.MethodPost, "/auth/telegram", "application/json", `{"init_data":"`+uid+`"}`)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func patchOf(body map[string]any) map[string]any {
	patch, _ := body["patch"].(map[string]any)
	return patch
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	rec := srv.client(t).do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestIndex_RendersCatalogAndIssuesSession(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)

	rec := c.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `id="region-main"`)
	assert.Contains(t, rec.Body.String(), "Creative Dashboard Kit")
	require.Contains(t, c.cookies, sessionCookie)
	assert.Equal(t, 1, srv.registry.Len())

	c.do(http.MethodGet, "/", "", "")
	assert.Equal(t, 1, srv.registry.Len())
}

func TestScript(t *testing.T) {
	srv := newServer(t)
	rec := srv.client(t).do(http.MethodGet, "/static/app.js", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
}

func TestCommand_RequiresSignIn(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)
	c.do(http.MethodGet, "/", "", "")

	rec, body := c.command("bookmark", "ui-10001", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "unauthorized", body["code"])
	assert.Equal(t, "Please sign in to bookmark items.", body["message"])
	assert.Contains(t, patchOf(body), views.RegionFlash)
}

func TestCommand_CartFlow(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)
	c.signIn("42")

	rec, body := c.command("cart-add", "ui-10001", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Item added to cart successfully!", body["message"])
	header, _ := patchOf(body)[views.RegionHeader].(string)
	assert.Contains(t, header, `<span class="cart-count">1</span>`)

	rec, body = c.command("cart-add", "ui-10001", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "precondition", body["code"])

	user, err := srv.mem.GetUser(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"ui-10001"}, user.Cart)

	rec, _ = c.command("pay-prepare", "ui-10001", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = c.command("pay-confirm", "ui-10001", map[string]string{"receipt": "https://img.example/r.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	payments, err := srv.mem.ListPaymentsByUser(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "https://img.example/r.png", payments[0].ReceiptURL)
	user, err = srv.mem.GetUser(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, user.Cart)
}

func TestCommand_UnknownAndMalformed(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)

	rec, body := c.command("self-destruct", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_command", body["code"])

	rec = c.do(http.MethodPost, "/api/commands", "application/json", `{"target":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode(t, rec)["code"])
}

func TestCommand_NavigationGating(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)
	c.do(http.MethodGet, "/", "", "")

	rec, body := c.command("navigate", "dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home", body["page"])

	rec, body = c.command("navigate", "settings", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["code"])
}

func TestCommand_AdminOnly(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)
	c.signIn("42")

	rec, body := c.command("verify", "user:42", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", body["code"])

	admin := srv.client(t)
	admin.signIn("admin")
	rec, _ = admin.command("navigate", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = admin.command("verify", "user:42", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Item verified successfully!", body["message"])

	user, err := srv.mem.GetUser(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, user.Verified)

	rec, body = admin.command("verify", "coupon:1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Unknown item type.", body["message"])
}

func TestDownload(t *testing.T) {
	srv := newServer(t)
	require.NoError(t, srv.mem.CreateUser(context.Background(), &models.User{
		UID: "42", TelegramUsername: "ama", Purchases: []string{"ui-10001"},
	}))
	c := srv.client(t)
	c.signIn("42")

	rec, body := c.command("download", "ui-10001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn.example.com/kits/ui-10001", body["url"])

	rec, body = c.command("download", "ui-10002", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Nil(t, body["url"])
}

func TestSignIn_Failure(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)

	rec := c.do(http.MethodPost, "/auth/telegram", "application/json", `{"init_data":"bad"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to sign in. Please try again.", decode(t, rec)["message"])

	rec = c.do(http.MethodPost, "/auth/telegram", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignInAndOut(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)
	c.do(http.MethodGet, "/", "", "")
	anonCookie := c.cookies[sessionCookie].Value

	rec := c.do(http.MethodPost, "/auth/telegram", "application/json", `{"init_data":"42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	header, _ := patchOf(body)[views.RegionHeader].(string)
	assert.Contains(t, header, "Logout")
	assert.NotEqual(t, anonCookie, c.cookies[sessionCookie].Value)

	rec = c.do(http.MethodPost, "/auth/logout", "application/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	header, _ = patchOf(decode(t, rec))[views.RegionHeader].(string)
	assert.Contains(t, header, "Login")

	rec = c.do(http.MethodPost, "/auth/logout", "application/json", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession_RestoredAfterEviction(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)
	c.signIn("42")

	evicted := srv.registry.EvictIdle(time.Now().Add(24*time.Hour), time.Minute)
	require.Equal(t, 1, evicted)

	rec := c.do(http.MethodGet, "/api/view", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	regions, _ := decode(t, rec)["regions"].(map[string]any)
	header, _ := regions[views.RegionHeader].(string)
	assert.Contains(t, header, "Logout")
	assert.Contains(t, header, "User 42")
}

func TestTheme(t *testing.T) {
	srv := newServer(t)
	c := srv.client(t)

	rec := c.do(http.MethodPost, "/api/theme", "application/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", decode(t, rec)["theme"])
	require.Contains(t, c.cookies, themeCookie)
	assert.Equal(t, "dark", c.cookies[themeCookie].Value)

	// A new session picks the theme up from the cookie.
	delete(c.cookies, sessionCookie)
	rec = c.do(http.MethodGet, "/", "", "")
	assert.Contains(t, rec.Body.String(), `data-theme="dark"`)
}

func TestUpload(t *testing.T) {
	srv := newServer(t)
	admin := srv.client(t)
	admin.signIn("admin")

	form := url.Values{
		"title":      {"Kanban Kit"},
		"desc":       {"Boards and cards"},
		"image":      {"https://example.com/kanban.png"},
		"category":   {"components"},
		"price_ghc":  {"120"},
		"price_usd":  {"abc"},
		"price_usdt": {"10"},
		"price_eth":  {"0.004"},
		"price_bnb":  {"0.02"},
	}
	rec := admin.do(http.MethodPost, "/api/admin/uis", "application/x-www-form-urlencoded", form.Encode())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "Invalid USD price")

	queue, err := srv.mem.ListUnverifiedUIs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue)

	form.Set("price_usd", "10")
	rec = admin.do(http.MethodPost, "/api/admin/uis", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	queue, err = srv.mem.ListUnverifiedUIs(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "Kanban Kit", queue[0].Title)
}

func TestClassify(t *testing.T) {
	status, code, message := classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", code)
	assert.Equal(t, storefront.GenericFailure, message)

	status, code, _ = classify(&storefront.ActionError{Kind: storefront.KindPrecondition, Err: storefront.ErrSessionChanged})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "session_changed", code)

	status, _, _ = classify(&storefront.ActionError{Kind: storefront.KindRemote, Message: storefront.GenericFailure})
	assert.Equal(t, http.StatusBadGateway, status)
}
