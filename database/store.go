package database

import (
	"context"
	"errors"

	"uikitstore/models"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrPaymentSettled = errors.New("payment already settled")
	ErrInvalidField   = errors.New("invalid user set field")
)

// Store is the remote document store consumed by the storefront. Set-valued
// user fields are only ever changed through atomic add/remove/clear calls.
type Store interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// CreateUser inserts the user unless a document with the same uid exists.
	CreateUser(ctx context.Context, user *models.User) error
	SetTelegramUsername(ctx context.Context, uid, username string) error
	AddToUserSet(ctx context.Context, uid string, field models.UserSetField, ids ...string) error
	RemoveFromUserSet(ctx context.Context, uid string, field models.UserSetField, id string) error
	ClearUserSet(ctx context.Context, uid string, field models.UserSetField) error
	ListUnverifiedUsers(ctx context.Context) ([]models.User, error)
	SetUserVerified(ctx context.Context, uid string) error
	RejectUser(ctx context.Context, uid string) error

	IsAdmin(ctx context.Context, uid string) (bool, error)

	ListUIs(ctx context.Context) ([]models.UI, error)
	ListUnverifiedUIs(ctx context.Context) ([]models.UI, error)
	UIIDExists(ctx context.Context, uiID string) (bool, error)
	// CreateUI assigns ui.ID and ui.CreatedAt.
	CreateUI(ctx context.Context, ui *models.UI) error
	SetUIVerified(ctx context.Context, id string) error
	DeleteUI(ctx context.Context, id string) error

	// CreatePayment assigns p.ID and the store-side p.Timestamp.
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, uid string) ([]models.Payment, error)
	ListPendingPayments(ctx context.Context) ([]models.Payment, error)
	SetPaymentMethod(ctx context.Context, id, method string) error
	// SettlePayment moves a pending payment to status and returns the result.
	// It fails with ErrPaymentSettled when the payment is no longer pending.
	SettlePayment(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error)
}
