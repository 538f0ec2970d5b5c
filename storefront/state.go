package storefront

import (
	"github.com/shopspring/decimal"

	"uikitstore/identity"
	"uikitstore/models"
)

type Page string

const (
	PageNone      Page = ""
	PageHome      Page = "home"
	PageDashboard Page = "dashboard"
	PageProfile   Page = "profile"
	PageAdmin     Page = "admin"
	PageDetail    Page = "detail"
)

// Gated reports whether the page needs a signed-in session.
func (p Page) Gated() bool {
	return p == PageDashboard || p == PageProfile || p == PageAdmin
}

type Tab string

const (
	TabPurchased     Tab = "purchased"
	TabBookmarks     Tab = "bookmarks"
	TabPayments      Tab = "payments"
	TabVerifyUI      Tab = "verify-ui"
	TabVerifyUser    Tab = "verify-user"
	TabVerifyPayment Tab = "verify-payment"
)

var pageTabs = map[Page][]Tab{
	PageDashboard: {TabPurchased, TabBookmarks, TabPayments},
	PageAdmin:     {TabVerifyUI, TabVerifyUser, TabVerifyPayment},
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) Theme {
	if s == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

type ModalKind string

const (
	ModalNone     ModalKind = ""
	ModalCart     ModalKind = "cart"
	ModalPayment  ModalKind = "payment"
	ModalTelegram ModalKind = "telegram"
)

// PaymentDraft is the resolved checkout shown in the payment modal.
type PaymentDraft struct {
	UIIDs    []string
	Items    []models.UI
	TotalUSD decimal.Decimal
	Info     string
	Contact  string
}

type Modal struct {
	Kind  ModalKind
	Draft *PaymentDraft
}

type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
)

type Flash struct {
	Level   FlashLevel
	Message string
}

// UploadForm carries the raw admin upload fields.
type UploadForm struct {
	Title     string `form:"title" json:"title"`
	Desc      string `form:"desc" json:"desc"`
	Image     string `form:"image" json:"image"`
	Category  string `form:"category" json:"category"`
	Notes     string `form:"notes" json:"notes"`
	PriceGHC  string `form:"price_ghc" json:"priceGhc"`
	PriceUSD  string `form:"price_usd" json:"priceUsd"`
	PriceUSDT string `form:"price_usdt" json:"priceUsdt"`
	PriceETH  string `form:"price_eth" json:"priceEth"`
	PriceBNB  string `form:"price_bnb" json:"priceBnb"`
}

// State is everything one browser session knows. It is owned by an App.
type State struct {
	Session *identity.Identity
	Profile *models.User
	IsAdmin bool

	Page           Page
	Tab            Tab
	BackTarget     Page
	DetailUIID     string
	ActiveCategory string
	Query          string
	Theme          Theme

	Categories    []models.Category
	UIs           []models.UI
	CatalogLoaded bool

	Cart      []string
	Bookmarks []string
	Purchases []string
	Payments  []models.Payment

	UnverifiedUIs   []models.UI
	UnverifiedUsers []models.User
	PendingPayments []models.Payment

	Modal  Modal
	Flash  *Flash
	Upload UploadForm
}

func newState() *State {
	return &State{
		Theme:     ThemeLight,
		Cart:      []string{},
		Bookmarks: []string{},
		Purchases: []string{},
	}
}

// SignedIn reports whether a session identity is attached.
func (s *State) SignedIn() bool {
	return s.Session != nil
}

// FindUI returns the verified listing with the given public id.
func (s *State) FindUI(uiID string) (models.UI, bool) {
	for _, ui := range s.UIs {
		if ui.UIID == uiID && ui.Verified {
			return ui, true
		}
	}
	return models.UI{}, false
}

// Resolve maps ids to verified listings, dropping the ones that do not resolve.
func (s *State) Resolve(ids []string) []models.UI {
	out := make([]models.UI, 0, len(ids))
	for _, id := range ids {
		if ui, ok := s.FindUI(id); ok {
			out = append(out, ui)
		}
	}
	return out
}

// VisibleCatalog is the verified slice of the catalog the grid shows. A search
// query spans all categories; otherwise only the active category is shown.
func (s *State) VisibleCatalog() []models.UI {
	out := []models.UI{}
	for _, ui := range s.UIs {
		if !ui.Verified {
			continue
		}
		if s.Query != "" {
			if ui.Matches(s.Query) {
				out = append(out, ui)
			}
			continue
		}
		if s.ActiveCategory == "" || ui.Category == s.ActiveCategory {
			out = append(out, ui)
		}
	}
	return out
}

func (s *State) HasBookmark(uiID string) bool { return containsID(s.Bookmarks, uiID) }
func (s *State) InCart(uiID string) bool      { return containsID(s.Cart, uiID) }
func (s *State) Purchased(uiID string) bool   { return containsID(s.Purchases, uiID) }

// clearSession drops everything tied to the signed-in identity.
func (s *State) clearSession() {
	s.Session = nil
	s.Profile = nil
	s.IsAdmin = false
	s.Cart = []string{}
	s.Bookmarks = []string{}
	s.Purchases = []string{}
	s.Payments = nil
	s.UnverifiedUIs = nil
	s.UnverifiedUsers = nil
	s.PendingPayments = nil
	s.Modal = Modal{}
	s.Upload = UploadForm{}
	if s.Page.Gated() {
		s.Page = PageHome
		s.Tab = ""
	}
	if s.BackTarget.Gated() {
		s.BackTarget = PageHome
	}
}

// Clone returns a deep copy safe to hand to renderers.
func (s *State) Clone() *State {
	c := *s
	if s.Session != nil {
		id := *s.Session
		c.Session = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		p.Bookmarks = cloneIDs(s.Profile.Bookmarks)
		p.Cart = cloneIDs(s.Profile.Cart)
		p.Purchases = cloneIDs(s.Profile.Purchases)
		c.Profile = &p
	}
	c.Categories = append([]models.Category(nil), s.Categories...)
	c.UIs = append([]models.UI(nil), s.UIs...)
	c.Cart = cloneIDs(s.Cart)
	c.Bookmarks = cloneIDs(s.Bookmarks)
	c.Purchases = cloneIDs(s.Purchases)
	c.Payments = clonePayments(s.Payments)
	c.UnverifiedUIs = append([]models.UI(nil), s.UnverifiedUIs...)
	c.UnverifiedUsers = cloneUsers(s.UnverifiedUsers)
	c.PendingPayments = clonePayments(s.PendingPayments)
	if s.Modal.Draft != nil {
		d := *s.Modal.Draft
		d.UIIDs = cloneIDs(s.Modal.Draft.UIIDs)
		d.Items = append([]models.UI(nil), s.Modal.Draft.Items...)
		c.Modal.Draft = &d
	}
	if s.Flash != nil {
		f := *s.Flash
		c.Flash = &f
	}
	return &c
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func clonePayments(in []models.Payment) []models.Payment {
	if in == nil {
		return nil
	}
	out := make([]models.Payment, len(in))
	for i, p := range in {
		p.UIIDs = cloneIDs(p.UIIDs)
		out[i] = p
	}
	return out
}

func cloneUsers(in []models.User) []models.User {
	if in == nil {
		return nil
	}
	out := make([]models.User, len(in))
	for i, u := range in {
		u.Bookmarks = cloneIDs(u.Bookmarks)
		u.Cart = cloneIDs(u.Cart)
		u.Purchases = cloneIDs(u.Purchases)
		out[i] = u
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func withoutID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func unionIDs(ids []string, add ...string) []string {
	out := cloneIDs(ids)
	for _, id := range add {
		if !containsID(out, id) {
			out = append(out, id)
		}
	}
	return out
}
