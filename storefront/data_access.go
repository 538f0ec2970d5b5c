package storefront

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"uikitstore/database"
	"uikitstore/identity"
	"uikitstore/logger"
	"uikitstore/models"
)

// OnAuthStateChanged resets the session-scoped State to id and hydrates it.
// A nil id is a sign-out. Repeated notifications for the same identity are ignored.
func (a *App) OnAuthStateChanged(ctx context.Context, id *identity.Identity) {
	a.mu.Lock()
	if sameIdentity(a.state.Session, id) {
		a.mu.Unlock()
		return
	}
	a.epoch++
	epoch := a.epoch
	a.state.clearSession()
	if id != nil {
		sess := *id
		a.state.Session = &sess
	}
	a.mu.Unlock()

	if id == nil {
		logger.Info(ctx, "Session cleared")
		return
	}
	a.hydrateSession(ctx, epoch, id)
}

// Refresh re-reads the catalog and the signed-in user's documents. It runs on
// every full page load.
func (a *App) Refresh(ctx context.Context) {
	_ = a.loadCatalog(ctx)
	if sess, epoch := a.session(); sess != nil {
		a.hydrateSession(ctx, epoch, sess)
	}
}

// hydratedFields are locked in this order; actions hold at most one of them.
var hydratedFields = []string{
	string(models.FieldBookmarks),
	string(models.FieldCart),
	fieldTelegramUsername,
}

func sameIdentity(a, b *identity.Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UID == b.UID
}

// hydrateSession loads the user document, payments and admin flag for id.
// Each failing read is logged and leaves its part of State unchanged.
// The user-field locks are held from the read to the commit so a write
// running in another request cannot be overwritten by an older read.
func (a *App) hydrateSession(ctx context.Context, epoch uint64, id *identity.Identity) {
	for _, field := range hydratedFields {
		unlock := a.fields.lock(field)
		defer unlock()
	}

	user, err := a.loadOrCreateUser(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to load user data", zap.String("uid", id.UID), zap.Error(err))
	}

	payments, payErr := a.store.ListPaymentsByUser(ctx, id.UID)
	if payErr != nil {
		logger.Error(ctx, "Failed to load payments", zap.String("uid", id.UID), zap.Error(payErr))
	}

	isAdmin := a.checkAdmin(ctx, id)

	_ = a.commit(epoch, func(s *State) {
		if user != nil {
			// The set fields live on State; the profile keeps the scalar fields.
			profile := *user
			profile.Bookmarks, profile.Cart, profile.Purchases = nil, nil, nil
			s.Profile = &profile
			s.Cart = cloneIDs(user.Cart)
			s.Bookmarks = cloneIDs(user.Bookmarks)
			s.Purchases = cloneIDs(user.Purchases)
			if user.TelegramUsername == "" {
				s.Modal = Modal{Kind: ModalTelegram}
			}
		}
		if payErr == nil {
			s.Payments = payments
		}
		s.IsAdmin = isAdmin
	})
}

func (a *App) loadOrCreateUser(ctx context.Context, id *identity.Identity) (*models.User, error) {
	user, err := a.store.GetUser(ctx, id.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	fresh := &models.User{
		UID:              id.UID,
		Name:             id.Name,
		Email:            id.Email,
		TelegramUsername: id.Username,
		Bookmarks:        []string{},
		Cart:             []string{},
		Purchases:        []string{},
		CreatedAt:        a.opts.Now().UTC(),
	}
	if err := a.store.CreateUser(ctx, fresh); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Created user", zap.String("uid", id.UID))

	// A concurrent sign-in may have created the document first.
	return a.store.GetUser(ctx, id.UID)
}

// checkAdmin treats store errors as a negative answer.
func (a *App) checkAdmin(ctx context.Context, id *identity.Identity) bool {
	ok, err := a.store.IsAdmin(ctx, id.UID)
	if err != nil {
		logger.Error(ctx, "Admin check failed", zap.String("uid", id.UID), zap.Error(err))
		return false
	}
	return ok
}

// loadCatalog reads the static categories and every listing.
func (a *App) loadCatalog(ctx context.Context) error {
	uis, err := a.store.ListUIs(ctx)
	if err != nil {
		logger.Error(ctx, "Failed to load UIs", zap.Error(err))
		a.flash(FlashError, "Failed to load UIs. Please try again.")
		return err
	}

	a.read(func(s *State) {
		s.Categories = append([]models.Category(nil), models.DefaultCategories...)
		s.UIs = uis
		s.CatalogLoaded = true
	})
	return nil
}

func (a *App) ensureCatalog(ctx context.Context) {
	loaded := false
	a.read(func(s *State) { loaded = s.CatalogLoaded })
	if !loaded {
		_ = a.loadCatalog(ctx)
	}
}

// loadAdminQueues runs the three moderation queries independently.
func (a *App) loadAdminQueues(ctx context.Context, epoch uint64) {
	uis, uiErr := a.store.ListUnverifiedUIs(ctx)
	if uiErr != nil {
		logger.Error(ctx, "Failed to load unverified UIs", zap.Error(uiErr))
	}
	users, userErr := a.store.ListUnverifiedUsers(ctx)
	if userErr != nil {
		logger.Error(ctx, "Failed to load unverified users", zap.Error(userErr))
	}
	payments, payErr := a.store.ListPendingPayments(ctx)
	if payErr != nil {
		logger.Error(ctx, "Failed to load pending payments", zap.Error(payErr))
	}

	_ = a.commit(epoch, func(s *State) {
		if uiErr == nil {
			s.UnverifiedUIs = uis
		}
		if userErr == nil {
			s.UnverifiedUsers = users
		}
		if payErr == nil {
			s.PendingPayments = payments
		}
	})
}

// refreshPurchases re-reads the signed-in user's purchases and payments.
func (a *App) refreshPurchases(ctx context.Context, epoch uint64, uid string) {
	user, err := a.store.GetUser(ctx, uid)
	if err != nil {
		logger.Error(ctx, "Failed to refresh purchases", zap.String("uid", uid), zap.Error(err))
	}
	payments, payErr := a.store.ListPaymentsByUser(ctx, uid)
	if payErr != nil {
		logger.Error(ctx, "Failed to refresh payments", zap.String("uid", uid), zap.Error(payErr))
	}

	_ = a.commit(epoch, func(s *State) {
		if err == nil {
			s.Purchases = cloneIDs(user.Purchases)
		}
		if payErr == nil {
			s.Payments = payments
		}
	})
}
