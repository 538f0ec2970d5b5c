package views

import (
	"fmt"
	"strings"

	"uikitstore/models"
	"uikitstore/storefront"
	"uikitstore/utils"
)

// Action is a declarative interaction affordance. The page script posts
// Name and Target to the command endpoint when the element is activated.
type Action struct {
	Name   string
	Target string
}

func act(name, target string) Action {
	return Action{Name: name, Target: target}
}

type Header struct {
	SignedIn  bool
	UserName  string
	AuthLabel string
	CartCount int
	ShowAdmin bool
	Page      string
	Theme     string
	NextTheme string
	OpenCart  Action
}

type CategoryTab struct {
	ID     string
	Name   string
	Active bool
	Select Action
}

type CategoryTabs struct {
	Visible bool
	Query   string
	Tabs    []CategoryTab
}

type Card struct {
	UIID       string
	Title      string
	Desc       string
	Image      string
	PriceUSD   string
	Bookmarked bool
	InCart     bool
	Purchased  bool
	Detail     Action
	Bookmark   Action
	AddToCart  Action
	Download   Action
}

// Grid is a card list with the message shown when it has no cards.
type Grid struct {
	Cards []Card
	Empty string
}

type PriceLine struct {
	Currency string
	Amount   string
}

type Detail struct {
	Found    bool
	Card     Card
	Category string
	Notes    string
	Prices   []PriceLine
	BuyNow   Action
	Back     Action
}

type TabLink struct {
	Label  string
	Active bool
	Select Action
}

type PaymentRow struct {
	ID          string
	Title       string
	When        string
	Method      string
	Amount      string
	Status      string
	StatusClass string
	ReceiptURL  string
}

type PaymentList struct {
	Rows  []PaymentRow
	Empty string
}

type Dashboard struct {
	Tab       string
	Tabs      []TabLink
	Purchased Grid
	Bookmarks Grid
	Payments  PaymentList
}

type Profile struct {
	Name     string
	Email    string
	UID      string
	Telegram string
	Verified string
	Save     Action
}

type QueueItem struct {
	ID     string
	Title  string
	Meta   string
	Method string
	Verify Action
	Reject Action
	Assign Action
}

type Queue struct {
	Items []QueueItem
	Empty string
}

type Admin struct {
	Tab        string
	Tabs       []TabLink
	UIs        Queue
	Users      Queue
	Payments   Queue
	Upload     storefront.UploadForm
	Categories []models.Category
}

type CartLine struct {
	UIID     string
	Title    string
	PriceUSD string
	Remove   Action
}

type Modal struct {
	Kind     string
	Lines    []CartLine
	Total    string
	Info     string
	Contact  string
	Checkout Action
	Confirm  Action
	Close    Action
}

type Flash struct {
	Level   string
	Message string
}

// View is the complete projection of one State snapshot.
type View struct {
	Page       string
	Header     Header
	Categories CategoryTabs
	Catalog    Grid
	Detail     Detail
	Dashboard  Dashboard
	Profile    Profile
	Admin      Admin
	Modal      Modal
	Flash      *Flash
}

// Build projects s into view-models. It never mutates s.
func Build(s *storefront.State) View {
	page := s.Page
	if page == storefront.PageNone {
		page = storefront.PageHome
	}
	v := View{
		Page:       string(page),
		Header:     BuildHeader(s),
		Categories: BuildCategoryTabs(s),
		Modal:      BuildModal(s),
		Flash:      BuildFlash(s),
	}
	switch page {
	case storefront.PageHome:
		v.Catalog = BuildCatalog(s)
	case storefront.PageDetail:
		v.Detail = BuildDetail(s)
	case storefront.PageDashboard:
		v.Dashboard = BuildDashboard(s)
	case storefront.PageProfile:
		v.Profile = BuildProfile(s)
	case storefront.PageAdmin:
		v.Admin = BuildAdmin(s)
	}
	return v
}

func BuildHeader(s *storefront.State) Header {
	h := Header{
		SignedIn:  s.SignedIn(),
		AuthLabel: "Login",
		CartCount: len(s.Cart),
		ShowAdmin: s.IsAdmin,
		Page:      string(s.Page),
		Theme:     string(s.Theme),
		NextTheme: string(storefront.ThemeDark),
		OpenCart:  act("cart-open", ""),
	}
	if s.Theme == storefront.ThemeDark {
		h.NextTheme = string(storefront.ThemeLight)
	}
	if h.SignedIn {
		h.AuthLabel = "Logout"
		h.UserName = s.Session.Name
		if s.Profile != nil && s.Profile.Name != "" {
			h.UserName = s.Profile.Name
		}
	}
	return h
}

func BuildCategoryTabs(s *storefront.State) CategoryTabs {
	ct := CategoryTabs{
		Visible: s.Page == storefront.PageHome || s.Page == storefront.PageNone,
		Query:   s.Query,
	}
	for _, c := range s.Categories {
		ct.Tabs = append(ct.Tabs, CategoryTab{
			ID:     c.ID,
			Name:   c.Name,
			Active: s.Query == "" && c.ID == s.ActiveCategory,
			Select: act("category", c.ID),
		})
	}
	return ct
}

func card(s *storefront.State, ui models.UI) Card {
	return Card{
		UIID:       ui.UIID,
		Title:      ui.Title,
		Desc:       ui.Desc,
		Image:      ui.Image,
		PriceUSD:   utils.FormatUSD(ui.Price.USD),
		Bookmarked: s.HasBookmark(ui.UIID),
		InCart:     s.InCart(ui.UIID),
		Purchased:  s.Purchased(ui.UIID),
		Detail:     act("detail", ui.UIID),
		Bookmark:   act("bookmark", ui.UIID),
		AddToCart:  act("cart-add", ui.UIID),
		Download:   act("download", ui.UIID),
	}
}

// cards resolves ids against the verified catalog, skipping ids that do not resolve.
func cards(s *storefront.State, ids []string) []Card {
	out := []Card{}
	for _, ui := range s.Resolve(ids) {
		out = append(out, card(s, ui))
	}
	return out
}

func BuildCatalog(s *storefront.State) Grid {
	g := Grid{Cards: []Card{}}
	for _, ui := range s.VisibleCatalog() {
		g.Cards = append(g.Cards, card(s, ui))
	}
	if len(g.Cards) == 0 {
		if s.Query != "" {
			g.Empty = "No UIs found matching your search."
		} else {
			g.Empty = "No UIs available in this category yet."
		}
	}
	return g
}

func BuildDetail(s *storefront.State) Detail {
	d := Detail{Back: act("back", "")}
	ui, ok := s.FindUI(s.DetailUIID)
	if !ok {
		return d
	}
	d.Found = true
	d.Card = card(s, ui)
	d.Notes = ui.Notes
	d.Category = ui.Category
	for _, c := range s.Categories {
		if c.ID == ui.Category {
			d.Category = c.Name
		}
	}
	d.Prices = []PriceLine{
		{Currency: "GHC", Amount: ui.Price.GHC.String()},
		{Currency: "USD", Amount: ui.Price.USD.String()},
		{Currency: "USDT", Amount: ui.Price.USDT.String()},
		{Currency: "ETH", Amount: ui.Price.ETH.String()},
		{Currency: "BNB", Amount: ui.Price.BNB.String()},
	}
	d.BuyNow = act("pay-prepare", ui.UIID)
	return d
}

func tabLinks(s *storefront.State, tabs []storefront.Tab, labels map[storefront.Tab]string) []TabLink {
	out := make([]TabLink, len(tabs))
	for i, t := range tabs {
		out[i] = TabLink{Label: labels[t], Active: s.Tab == t, Select: act("tab", string(t))}
	}
	return out
}

func BuildDashboard(s *storefront.State) Dashboard {
	d := Dashboard{
		Tab: string(s.Tab),
		Tabs: tabLinks(s,
			[]storefront.Tab{storefront.TabPurchased, storefront.TabBookmarks, storefront.TabPayments},
			map[storefront.Tab]string{
				storefront.TabPurchased: "Purchased",
				storefront.TabBookmarks: "Bookmarks",
				storefront.TabPayments:  "Payments",
			}),
		Purchased: Grid{Cards: cards(s, s.Purchases)},
		Bookmarks: Grid{Cards: cards(s, s.Bookmarks)},
		Payments:  PaymentList{Rows: []PaymentRow{}},
	}
	if len(d.Purchased.Cards) == 0 {
		d.Purchased.Empty = "No purchased UIs yet."
	}
	if len(d.Bookmarks.Cards) == 0 {
		d.Bookmarks.Empty = "No bookmarked UIs yet."
	}
	for _, p := range s.Payments {
		d.Payments.Rows = append(d.Payments.Rows, paymentRow(p))
	}
	if len(d.Payments.Rows) == 0 {
		d.Payments.Empty = "No payment history yet."
	}
	return d
}

func paymentRow(p models.Payment) PaymentRow {
	row := PaymentRow{
		ID:         p.ID,
		Title:      p.UITitle,
		Method:     p.Method,
		Amount:     utils.FormatUSD(p.UIPrice),
		ReceiptURL: p.ReceiptURL,
	}
	if !p.Timestamp.IsZero() {
		row.When = p.Timestamp.UTC().Format("2006-01-02 15:04")
	}
	if row.Method == "" {
		row.Method = "N/A"
	}
	switch p.Status {
	case models.PaymentVerified:
		row.Status, row.StatusClass = "Verified", "status-verified"
	case models.PaymentRejected:
		row.Status, row.StatusClass = "Rejected", "status-rejected"
	default:
		row.Status, row.StatusClass = "Pending", "status-pending"
	}
	return row
}

func BuildProfile(s *storefront.State) Profile {
	p := Profile{
		Telegram: "Not set",
		Verified: "No",
		Save:     act("telegram-save", ""),
	}
	if s.Session != nil {
		p.UID = s.Session.UID
		p.Name = s.Session.Name
		p.Email = s.Session.Email
	}
	if u := s.Profile; u != nil {
		if u.Name != "" {
			p.Name = u.Name
		}
		if u.Email != "" {
			p.Email = u.Email
		}
		if u.TelegramUsername != "" {
			p.Telegram = u.TelegramUsername
		}
		if u.Verified {
			p.Verified = "Yes"
		}
	}
	return p
}

func BuildAdmin(s *storefront.State) Admin {
	a := Admin{
		Tab: string(s.Tab),
		Tabs: tabLinks(s,
			[]storefront.Tab{storefront.TabVerifyUI, storefront.TabVerifyUser, storefront.TabVerifyPayment},
			map[storefront.Tab]string{
				storefront.TabVerifyUI:      "Verify UIs",
				storefront.TabVerifyUser:    "Verify Users",
				storefront.TabVerifyPayment: "Verify Payments",
			}),
		UIs:        Queue{Items: []QueueItem{}},
		Users:      Queue{Items: []QueueItem{}},
		Payments:   Queue{Items: []QueueItem{}},
		Upload:     s.Upload,
		Categories: s.Categories,
	}

	for _, ui := range s.UnverifiedUIs {
		a.UIs.Items = append(a.UIs.Items, QueueItem{
			ID:     ui.ID,
			Title:  ui.Title,
			Meta:   fmt.Sprintf("ID: %s | Category: %s", ui.UIID, ui.Category),
			Verify: act("verify", "ui:"+ui.ID),
			Reject: act("reject", "ui:"+ui.ID),
		})
	}
	if len(a.UIs.Items) == 0 {
		a.UIs.Empty = "No unverified UIs found."
	}

	for _, u := range s.UnverifiedUsers {
		telegram := u.TelegramUsername
		if telegram == "" {
			telegram = "N/A"
		}
		title := u.Name
		if title == "" {
			title = u.UID
		}
		a.Users.Items = append(a.Users.Items, QueueItem{
			ID:     u.UID,
			Title:  title,
			Meta:   fmt.Sprintf("Email: %s | Telegram: %s", u.Email, telegram),
			Verify: act("verify", "user:"+u.UID),
			Reject: act("reject", "user:"+u.UID),
		})
	}
	if len(a.Users.Items) == 0 {
		a.Users.Empty = "No unverified users found."
	}

	for _, p := range s.PendingPayments {
		meta := []string{"User: " + p.UserID, "Total: " + utils.FormatUSD(p.UIPrice)}
		if !p.Timestamp.IsZero() {
			meta = append(meta, p.Timestamp.UTC().Format("2006-01-02 15:04"))
		}
		a.Payments.Items = append(a.Payments.Items, QueueItem{
			ID:     p.ID,
			Title:  p.UITitle,
			Meta:   strings.Join(meta, " | "),
			Method: p.Method,
			Verify: act("verify", "payment:"+p.ID),
			Reject: act("reject", "payment:"+p.ID),
			Assign: act("payment-method", p.ID),
		})
	}
	if len(a.Payments.Items) == 0 {
		a.Payments.Empty = "No pending payments found."
	}
	return a
}

func cartLines(items []models.UI, removable bool) []CartLine {
	out := make([]CartLine, len(items))
	for i, ui := range items {
		out[i] = CartLine{
			UIID:     ui.UIID,
			Title:    ui.Title,
			PriceUSD: utils.FormatUSD(ui.Price.USD),
		}
		if removable {
			out[i].Remove = act("cart-remove", ui.UIID)
		}
	}
	return out
}

func BuildModal(s *storefront.State) Modal {
	m := Modal{Kind: string(s.Modal.Kind), Close: act("modal-close", "")}
	switch s.Modal.Kind {
	case storefront.ModalCart:
		items := s.Resolve(s.Cart)
		m.Lines = cartLines(items, true)
		m.Total = utils.FormatUSD(utils.SumUSD(items))
		m.Checkout = act("pay-prepare", strings.Join(s.Cart, ","))
	case storefront.ModalPayment:
		if d := s.Modal.Draft; d != nil {
			m.Lines = cartLines(d.Items, false)
			m.Total = utils.FormatUSD(d.TotalUSD)
			m.Info = d.Info
			m.Contact = d.Contact
			m.Confirm = act("pay-confirm", strings.Join(d.UIIDs, ","))
		}
	}
	return m
}

func BuildFlash(s *storefront.State) *Flash {
	if s.Flash == nil {
		return nil
	}
	return &Flash{Level: string(s.Flash.Level), Message: s.Flash.Message}
}
