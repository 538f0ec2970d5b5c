package storefront

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"uikitstore/database"
	"uikitstore/logger"
	"uikitstore/models"
)

// Moderation applies admin verify/reject decisions to the store. It is shared
// by the admin page and the Telegram callback handler.
type Moderation struct {
	store    database.Store
	observer PaymentObserver
}

func NewModeration(store database.Store, observer PaymentObserver) *Moderation {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Moderation{store: store, observer: observer}
}

// IsAdmin reports whether uid holds the admin capability.
func (m *Moderation) IsAdmin(ctx context.Context, uid string) (bool, error) {
	return m.store.IsAdmin(ctx, uid)
}

// Verify approves a queued item. For payments the returned record is the
// settled payment; its ids are then unioned into the payer's purchases.
func (m *Moderation) Verify(ctx context.Context, kind models.VerifyKind, id string) (*models.Payment, error) {
	switch kind {
	case models.KindUI:
		return nil, m.store.SetUIVerified(ctx, id)
	case models.KindUser:
		return nil, m.store.SetUserVerified(ctx, id)
	case models.KindPayment:
		return m.settle(ctx, id, models.PaymentVerified)
	}
	return nil, ErrUnknownKind
}

// Reject deletes an upload, marks a user rejected, or closes a payment as rejected.
func (m *Moderation) Reject(ctx context.Context, kind models.VerifyKind, id string) (*models.Payment, error) {
	switch kind {
	case models.KindUI:
		return nil, m.store.DeleteUI(ctx, id)
	case models.KindUser:
		return nil, m.store.RejectUser(ctx, id)
	case models.KindPayment:
		return m.settle(ctx, id, models.PaymentRejected)
	}
	return nil, ErrUnknownKind
}

func (m *Moderation) settle(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	p, err := m.store.SettlePayment(ctx, id, status)
	if errors.Is(err, database.ErrPaymentSettled) && status == models.PaymentVerified {
		p, err = m.pendingGrant(ctx, id, err)
	}
	if err != nil {
		return nil, err
	}

	if status == models.PaymentVerified && len(p.UIIDs) > 0 {
		if err := m.store.AddToUserSet(ctx, p.UserID, models.FieldPurchases, p.UIIDs...); err != nil {
			logger.Error(ctx, "Payment verified but purchases were not granted",
				zap.String("payment_id", p.ID), zap.String("uid", p.UserID), zap.Error(err))
			return p, fmt.Errorf("grant purchases for payment %s: %w", p.ID, err)
		}
	}

	logger.Info(ctx, "Payment settled", zap.String("payment_id", p.ID), zap.String("status", string(p.Status)))
	m.observer.PaymentSettled(ctx, p)
	return p, nil
}

// pendingGrant returns a verified payment whose ids are not all in the payer's
// purchases yet, so a repeated verify can finish a grant that failed after
// settlement. Otherwise it returns settledErr.
func (m *Moderation) pendingGrant(ctx context.Context, id string, settledErr error) (*models.Payment, error) {
	p, err := m.store.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load settled payment %s: %w", id, err)
	}
	if p.Status != models.PaymentVerified {
		return nil, settledErr
	}
	user, err := m.store.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load payer of payment %s: %w", id, err)
	}
	if containsAll(user.Purchases, p.UIIDs) {
		return nil, settledErr
	}
	logger.Warn(ctx, "Resuming purchase grant for verified payment",
		zap.String("payment_id", p.ID), zap.String("uid", p.UserID))
	return p, nil
}

func containsAll(set, ids []string) bool {
	have := make(map[string]struct{}, len(set))
	for _, id := range set {
		have[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// SetPaymentMethod records how a payment was made.
func (m *Moderation) SetPaymentMethod(ctx context.Context, id, method string) error {
	return m.store.SetPaymentMethod(ctx, id, method)
}
