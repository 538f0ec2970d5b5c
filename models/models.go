package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	UID              string    `bson:"_id" json:"uid"`
	Name             string    `bson:"name" json:"name"`
	Email            string    `bson:"email" json:"email"`
	TelegramUsername string    `bson:"telegram_username" json:"telegramUsername"`
	Verified         bool      `bson:"verified" json:"verified"`
	Rejected         bool      `bson:"rejected,omitempty" json:"rejected,omitempty"`
	Bookmarks        []string  `bson:"bookmarks" json:"bookmarks"`
	Cart             []string  `bson:"cart" json:"cart"`
	Purchases        []string  `bson:"purchases" json:"purchases"`
	CreatedAt        time.Time `bson:"created_at" json:"createdAt"`
}

// UserSetField names a set-valued list on the user document.
type UserSetField string

const (
	FieldBookmarks UserSetField = "bookmarks"
	FieldCart      UserSetField = "cart"
	FieldPurchases UserSetField = "purchases"
)

func (f UserSetField) Valid() bool {
	switch f {
	case FieldBookmarks, FieldCart, FieldPurchases:
		return true
	}
	return false
}

// Price holds independent amounts per currency. No conversion between them.
type Price struct {
	GHC  decimal.Decimal `bson:"ghc" json:"ghc"`
	USD  decimal.Decimal `bson:"usd" json:"usd"`
	USDT decimal.Decimal `bson:"usdt" json:"usdt"`
	ETH  decimal.Decimal `bson:"eth" json:"eth"`
	BNB  decimal.Decimal `bson:"bnb" json:"bnb"`
}

// UI is a purchasable design-kit listing. ID is the storage key, UIID the public one.
type UI struct {
	ID        string    `bson:"_id" json:"id"`
	UIID      string    `bson:"ui_id" json:"uiId"`
	Title     string    `bson:"title" json:"title"`
	Desc      string    `bson:"desc" json:"desc"`
	Image     string    `bson:"image" json:"image"`
	Category  string    `bson:"category" json:"category"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Price     Price     `bson:"price" json:"price"`
	Verified  bool      `bson:"verified" json:"verified"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Matches reports whether query is a case-insensitive substring of title or desc.
func (u UI) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(u.Title), q) ||
		strings.Contains(strings.ToLower(u.Desc), q)
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var DefaultCategories = []Category{
	{ID: "dashboards", Name: "Dashboards"},
	{ID: "ecommerce", Name: "E-commerce"},
	{ID: "landing", Name: "Landing Pages"},
	{ID: "mobile", Name: "Mobile UI"},
	{ID: "components", Name: "Components"},
}

func CategoryExists(id string) bool {
	for _, c := range DefaultCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

type Payment struct {
	ID         string          `bson:"_id" json:"id"`
	UserID     string          `bson:"user_id" json:"userId"`
	UIIDs      []string        `bson:"ui_ids" json:"uiIds"`
	UITitle    string          `bson:"ui_title" json:"uiTitle"`
	UIPrice    decimal.Decimal `bson:"ui_price" json:"uiPrice"`
	Method     string          `bson:"method" json:"method"`
	Status     PaymentStatus   `bson:"status" json:"status"`
	Timestamp  time.Time       `bson:"timestamp" json:"timestamp"`
	ReceiptURL string          `bson:"receipt_url,omitempty" json:"receiptUrl,omitempty"`
	Verified   bool            `bson:"verified" json:"verified"`
}

func (p Payment) Settled() bool {
	return p.Status != PaymentPending
}

// VerifyKind selects which admin queue a verify/reject targets.
type VerifyKind string

const (
	KindUI      VerifyKind = "ui"
	KindUser    VerifyKind = "user"
	KindPayment VerifyKind = "payment"
)

func (k VerifyKind) Valid() bool {
	return k == KindUI || k == KindUser || k == KindPayment
}
