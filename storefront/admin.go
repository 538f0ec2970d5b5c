package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"uikitstore/database"
	"uikitstore/identity"
	"uikitstore/logger"
	"uikitstore/models"
	"uikitstore/utils"
)

const uiIDAttempts = 5

func (a *App) requireAdmin() (*identity.Identity, uint64, error) {
	sess, epoch := a.session()
	if sess == nil {
		return nil, epoch, a.fail(preconditionErr(ErrNotSignedIn, "Please sign in to continue."))
	}
	var isAdmin bool
	a.read(func(s *State) { isAdmin = s.IsAdmin })
	if !isAdmin {
		return nil, epoch, a.fail(forbiddenErr("Only admins can do that."))
	}
	return sess, epoch, nil
}

// moderationFailure maps a store error from a verify/reject call. The queue is left as is.
func (a *App) moderationFailure(ctx context.Context, op string, kind models.VerifyKind, id string, err error) error {
	switch {
	case errors.Is(err, ErrUnknownKind):
		return a.fail(preconditionErr(err, "Unknown item type."))
	case errors.Is(err, database.ErrPaymentSettled):
		return a.fail(preconditionErr(err, "This payment has already been settled."))
	case errors.Is(err, database.ErrNotFound):
		return a.fail(notFoundErr(err, "That item no longer exists."))
	}
	return a.remoteFailure(ctx, op, err, zap.String("kind", string(kind)), zap.String("id", id))
}

func (a *App) Verify(ctx context.Context, kind models.VerifyKind, id string) error {
	sess, epoch, err := a.requireAdmin()
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return a.fail(preconditionErr(ErrUnknownKind, "Unknown item type."))
	}

	payment, err := a.moderation.Verify(ctx, kind, id)
	if err != nil {
		return a.moderationFailure(ctx, "verify", kind, id, err)
	}

	if err := a.commit(epoch, func(s *State) {
		dropFromQueue(s, kind, id)
		s.Flash = &Flash{Level: FlashSuccess, Message: "Item verified successfully!"}
	}); err != nil {
		return err
	}
	a.afterModeration(ctx, epoch, sess, kind, payment)
	return nil
}

func (a *App) Reject(ctx context.Context, kind models.VerifyKind, id string) error {
	sess, epoch, err := a.requireAdmin()
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return a.fail(preconditionErr(ErrUnknownKind, "Unknown item type."))
	}

	payment, err := a.moderation.Reject(ctx, kind, id)
	if err != nil {
		return a.moderationFailure(ctx, "reject", kind, id, err)
	}

	if err := a.commit(epoch, func(s *State) {
		dropFromQueue(s, kind, id)
		if kind == models.KindUI {
			kept := s.UIs[:0:0]
			for _, ui := range s.UIs {
				if ui.ID != id {
					kept = append(kept, ui)
				}
			}
			s.UIs = kept
		}
		s.Flash = &Flash{Level: FlashSuccess, Message: "Item rejected successfully!"}
	}); err != nil {
		return err
	}
	a.afterModeration(ctx, epoch, sess, kind, payment)
	return nil
}

// afterModeration refreshes whatever the decision changed for this session.
func (a *App) afterModeration(ctx context.Context, epoch uint64, sess *identity.Identity, kind models.VerifyKind, payment *models.Payment) {
	switch {
	case kind == models.KindUI:
		_ = a.loadCatalog(ctx)
	case payment != nil && payment.UserID == sess.UID:
		a.refreshPurchases(ctx, epoch, sess.UID)
	}
}

func dropFromQueue(s *State, kind models.VerifyKind, id string) {
	switch kind {
	case models.KindUI:
		kept := s.UnverifiedUIs[:0:0]
		for _, ui := range s.UnverifiedUIs {
			if ui.ID != id {
				kept = append(kept, ui)
			}
		}
		s.UnverifiedUIs = kept
	case models.KindUser:
		kept := s.UnverifiedUsers[:0:0]
		for _, u := range s.UnverifiedUsers {
			if u.UID != id {
				kept = append(kept, u)
			}
		}
		s.UnverifiedUsers = kept
	case models.KindPayment:
		kept := s.PendingPayments[:0:0]
		for _, p := range s.PendingPayments {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		s.PendingPayments = kept
	}
}

// AssignPaymentMethod records the free-text method an admin saw the payment arrive by.
func (a *App) AssignPaymentMethod(ctx context.Context, id, method string) error {
	_, epoch, err := a.requireAdmin()
	if err != nil {
		return err
	}
	method = strings.TrimSpace(method)

	if err := a.moderation.SetPaymentMethod(ctx, id, method); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return a.fail(notFoundErr(err, "That payment no longer exists."))
		}
		return a.remoteFailure(ctx, "assign_payment_method", err, zap.String("payment_id", id))
	}

	return a.commit(epoch, func(s *State) {
		for i := range s.PendingPayments {
			if s.PendingPayments[i].ID == id {
				s.PendingPayments[i].Method = method
			}
		}
		for i := range s.Payments {
			if s.Payments[i].ID == id {
				s.Payments[i].Method = method
			}
		}
		s.Flash = &Flash{Level: FlashSuccess, Message: "Payment method updated."}
	})
}

// Upload validates form, then creates an unverified listing with a fresh ui-NNNNN id.
func (a *App) Upload(ctx context.Context, form UploadForm) error {
	_, epoch, err := a.requireAdmin()
	if err != nil {
		return err
	}

	ui, verr := buildUpload(form)
	if verr != nil {
		a.read(func(s *State) { s.Upload = form })
		return a.fail(verr)
	}

	uiID, err := a.freshUIID(ctx)
	if err != nil {
		a.read(func(s *State) { s.Upload = form })
		return a.remoteFailure(ctx, "generate_ui_id", err)
	}
	ui.UIID = uiID

	if err := a.store.CreateUI(ctx, ui); err != nil {
		a.read(func(s *State) { s.Upload = form })
		return a.remoteFailure(ctx, "upload_ui", err, zap.String("ui_id", uiID))
	}
	logger.Info(ctx, "UI uploaded", zap.String("ui_id", uiID), zap.String("id", ui.ID))

	if err := a.commit(epoch, func(s *State) {
		s.Upload = UploadForm{}
		s.Flash = &Flash{Level: FlashSuccess, Message: "UI uploaded successfully! It will appear after verification."}
	}); err != nil {
		return err
	}
	_ = a.loadCatalog(ctx)
	a.loadAdminQueues(ctx, epoch)
	return nil
}

func buildUpload(form UploadForm) (*models.UI, *ActionError) {
	required := []struct{ name, value string }{
		{"title", form.Title},
		{"description", form.Desc},
		{"image", form.Image},
		{"category", form.Category},
	}
	for _, f := range required {
		if utils.IsBlank(f.value) {
			return nil, uploadErr(f.name, "this field is required")
		}
	}
	category := strings.TrimSpace(form.Category)
	if !models.CategoryExists(category) {
		return nil, uploadErr("category", "unknown category")
	}

	ui := &models.UI{
		Title:    strings.TrimSpace(form.Title),
		Desc:     strings.TrimSpace(form.Desc),
		Image:    strings.TrimSpace(form.Image),
		Category: category,
		Notes:    strings.TrimSpace(form.Notes),
	}
	prices := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"GHC price", form.PriceGHC, &ui.Price.GHC},
		{"USD price", form.PriceUSD, &ui.Price.USD},
		{"USDT price", form.PriceUSDT, &ui.Price.USDT},
		{"ETH price", form.PriceETH, &ui.Price.ETH},
		{"BNB price", form.PriceBNB, &ui.Price.BNB},
	}
	for _, p := range prices {
		d, err := utils.ParsePrice(p.raw)
		if err != nil {
			return nil, uploadErr(p.name, err.Error())
		}
		*p.dst = d
	}
	return ui, nil
}

func (a *App) freshUIID(ctx context.Context) (string, error) {
	for i := 0; i < uiIDAttempts; i++ {
		id := utils.GenerateUIID()
		exists, err := a.store.UIIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free ui id after %d attempts", uiIDAttempts)
}
