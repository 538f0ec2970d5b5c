package storefront

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"uikitstore/logger"
	"uikitstore/models"
	"uikitstore/utils"
)

// SignIn delegates to the identity capability. The resulting change
// notification hydrates State; the direct call below covers callers that
// are not subscribed.
func (a *App) SignIn(ctx context.Context, credential string) error {
	id, err := a.identity.SignIn(ctx, a.sid, credential)
	if err != nil {
		logger.Warn(ctx, "Sign-in failed", zap.Error(err))
		return a.fail(&ActionError{Kind: KindRemote, Message: "Failed to sign in. Please try again.", Err: err})
	}
	a.OnAuthStateChanged(ctx, id)
	return nil
}

// SignOut ends the session and clears every session-scoped collection.
func (a *App) SignOut(ctx context.Context) error {
	if sess, _ := a.session(); sess == nil {
		return a.fail(preconditionErr(ErrNotSignedIn, "You are not signed in."))
	}
	if err := a.identity.SignOut(ctx, a.sid); err != nil {
		logger.Error(ctx, "Sign-out failed", zap.Error(err))
		return a.fail(&ActionError{Kind: KindRemote, Message: "Failed to logout. Please try again.", Err: err})
	}
	a.OnAuthStateChanged(ctx, nil)
	return nil
}

// ToggleBookmark adds uiID to bookmarks when absent and removes it when present.
func (a *App) ToggleBookmark(ctx context.Context, uiID string) error {
	unlock := a.fields.lock(string(models.FieldBookmarks))
	defer unlock()

	sess, epoch := a.session()
	if sess == nil {
		return a.fail(preconditionErr(ErrNotSignedIn, "Please sign in to bookmark items."))
	}
	var has bool
	a.read(func(s *State) { has = s.HasBookmark(uiID) })

	var err error
	if has {
		err = a.store.RemoveFromUserSet(ctx, sess.UID, models.FieldBookmarks, uiID)
	} else {
		err = a.store.AddToUserSet(ctx, sess.UID, models.FieldBookmarks, uiID)
	}
	if err != nil {
		return a.remoteFailure(ctx, "toggle_bookmark", err, zap.String("uid", sess.UID), zap.String("ui_id", uiID))
	}

	return a.commit(epoch, func(s *State) {
		if has {
			s.Bookmarks = withoutID(s.Bookmarks, uiID)
		} else {
			s.Bookmarks = unionIDs(s.Bookmarks, uiID)
		}
	})
}

func (a *App) AddToCart(ctx context.Context, uiID string) error {
	unlock := a.fields.lock(string(models.FieldCart))
	defer unlock()

	sess, epoch := a.session()
	if sess == nil {
		return a.fail(preconditionErr(ErrNotSignedIn, "Please sign in to add items to cart."))
	}
	var has bool
	a.read(func(s *State) { has = s.InCart(uiID) })
	if has {
		return a.fail(preconditionErr(ErrAlreadyInCart, "This item is already in your cart."))
	}

	if err := a.store.AddToUserSet(ctx, sess.UID, models.FieldCart, uiID); err != nil {
		return a.remoteFailure(ctx, "add_to_cart", err, zap.String("uid", sess.UID), zap.String("ui_id", uiID))
	}

	return a.commit(epoch, func(s *State) {
		s.Cart = unionIDs(s.Cart, uiID)
		s.Flash = &Flash{Level: FlashSuccess, Message: "Item added to cart successfully!"}
	})
}

// RemoveFromCart drops uiID; an emptied cart closes the cart modal.
func (a *App) RemoveFromCart(ctx context.Context, uiID string) error {
	unlock := a.fields.lock(string(models.FieldCart))
	defer unlock()

	sess, epoch := a.session()
	if sess == nil {
		return a.fail(preconditionErr(ErrNotSignedIn, "Please sign in to view your cart."))
	}

	if err := a.store.RemoveFromUserSet(ctx, sess.UID, models.FieldCart, uiID); err != nil {
		return a.remoteFailure(ctx, "remove_from_cart", err, zap.String("uid", sess.UID), zap.String("ui_id", uiID))
	}

	return a.commit(epoch, func(s *State) {
		s.Cart = withoutID(s.Cart, uiID)
		if len(s.Cart) == 0 && s.Modal.Kind == ModalCart {
			s.Modal = Modal{}
			s.Flash = &Flash{Level: FlashSuccess, Message: "Item removed from cart. Your cart is now empty."}
		}
	})
}

func (a *App) OpenCart() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err *ActionError
	switch {
	case a.state.Session == nil:
		err = preconditionErr(ErrNotSignedIn, "Please sign in to view your cart.")
	case len(a.state.Cart) == 0:
		err = preconditionErr(ErrEmptyCart, "Your cart is empty.")
	}
	if err != nil {
		a.state.Flash = &Flash{Level: FlashError, Message: err.Message}
		return err
	}
	a.state.Modal = Modal{Kind: ModalCart}
	return nil
}

// checkout validates a purchase request against the live State.
func (a *App) checkout(uiIDs []string) (*PaymentDraft, *ActionError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.state.Session == nil:
		return nil, preconditionErr(ErrNotSignedIn, "Please sign in to proceed with payment.")
	case a.state.Profile == nil || a.state.Profile.TelegramUsername == "":
		return nil, preconditionErr(ErrTelegramRequired, "Please set your Telegram username in your profile before making a payment.")
	}

	items := a.state.Resolve(uiIDs)
	if len(items) == 0 {
		return nil, preconditionErr(ErrNoValidItems, "No valid items selected for purchase.")
	}
	resolved := make([]string, len(items))
	for i, ui := range items {
		resolved[i] = ui.UIID
	}
	return &PaymentDraft{
		UIIDs:    resolved,
		Items:    items,
		TotalUSD: utils.SumUSD(items),
		Info:     utils.PaymentInfo(items),
		Contact:  a.opts.PaymentContact,
	}, nil
}

// PreparePayment opens the payment modal for the resolvable subset of uiIDs.
func (a *App) PreparePayment(ctx context.Context, uiIDs []string) error {
	a.ensureCatalog(ctx)

	draft, err := a.checkout(uiIDs)
	if err != nil {
		return a.fail(err)
	}
	a.read(func(s *State) { s.Modal = Modal{Kind: ModalPayment, Draft: draft} })
	return nil
}

// InitiatePayment records a pending payment. The cart is cleared only when
// the requested ids are exactly the cart contents.
func (a *App) InitiatePayment(ctx context.Context, uiIDs []string, receiptURL string) error {
	a.ensureCatalog(ctx)

	unlock := a.fields.lock(string(models.FieldCart))
	defer unlock()

	sess, epoch := a.session()
	if sess == nil {
		return a.fail(preconditionErr(ErrNotSignedIn, "Please sign in to proceed with payment."))
	}
	draft, aerr := a.checkout(uiIDs)
	if aerr != nil {
		return a.fail(aerr)
	}

	var (
		cartCheckout bool
		buyer        *models.User
	)
	a.read(func(s *State) {
		cartCheckout = utils.SameIDSet(uiIDs, s.Cart)
		if s.Profile != nil {
			p := *s.Profile
			buyer = &p
		}
	})

	payment := &models.Payment{
		UserID:     sess.UID,
		UIIDs:      draft.UIIDs,
		UITitle:    utils.JoinTitles(draft.Items),
		UIPrice:    draft.TotalUSD,
		Status:     models.PaymentPending,
		ReceiptURL: strings.TrimSpace(receiptURL),
	}
	if err := a.store.CreatePayment(ctx, payment); err != nil {
		return a.remoteFailure(ctx, "create_payment", err, zap.String("uid", sess.UID))
	}
	logger.Info(ctx, "Payment record created",
		zap.String("payment_id", payment.ID), zap.String("uid", sess.UID), zap.String("total", payment.UIPrice.String()))

	cartCleared := false
	if cartCheckout {
		if err := a.store.ClearUserSet(ctx, sess.UID, models.FieldCart); err != nil {
			logger.Error(ctx, "Failed to clear cart after checkout",
				zap.String("uid", sess.UID), zap.String("payment_id", payment.ID), zap.Error(err))
		} else {
			cartCleared = true
		}
	}

	a.moderation.observer.PaymentCreated(ctx, payment, buyer)

	return a.commit(epoch, func(s *State) {
		s.Payments = append([]models.Payment{*payment}, s.Payments...)
		if cartCleared {
			s.Cart = []string{}
		}
		s.Modal = Modal{}
		s.Flash = &Flash{Level: FlashSuccess, Message: "Payment record created! We'll verify your payment soon."}
	})
}

// Download returns the download location of a purchased listing.
func (a *App) Download(uiID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.Purchased(uiID) {
		err := preconditionErr(ErrNotPurchased, "You haven't purchased this UI kit yet.")
		a.state.Flash = &Flash{Level: FlashError, Message: err.Message}
		return "", err
	}

	title := uiID
	for _, ui := range a.state.UIs {
		if ui.UIID == uiID {
			title = ui.Title
			break
		}
	}
	a.state.Flash = &Flash{Level: FlashSuccess, Message: "Download started: " + title}
	return strings.TrimRight(a.opts.DownloadBaseURL, "/") + "/" + uiID, nil
}

func (a *App) SaveTelegram(ctx context.Context, raw string) error {
	unlock := a.fields.lock(fieldTelegramUsername)
	defer unlock()

	sess, epoch := a.session()
	if sess == nil {
		return a.fail(preconditionErr(ErrNotSignedIn, "Please sign in to continue."))
	}
	username, ok := utils.NormalizeTelegramUsername(raw)
	if !ok {
		return a.fail(preconditionErr(ErrInvalidTelegram, "Please enter a valid Telegram username."))
	}

	if err := a.store.SetTelegramUsername(ctx, sess.UID, username); err != nil {
		return a.remoteFailure(ctx, "save_telegram", err, zap.String("uid", sess.UID))
	}

	return a.commit(epoch, func(s *State) {
		if s.Profile != nil {
			s.Profile.TelegramUsername = username
		}
		if s.Modal.Kind == ModalTelegram {
			s.Modal = Modal{}
		}
		s.Flash = &Flash{Level: FlashSuccess, Message: "Telegram username saved successfully!"}
	})
}

// ToggleTheme flips the theme and returns the new value for the client to persist.
func (a *App) ToggleTheme() Theme {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Theme == ThemeDark {
		a.state.Theme = ThemeLight
	} else {
		a.state.Theme = ThemeDark
	}
	return a.state.Theme
}

// CloseModal closes whichever modal is open.
func (a *App) CloseModal() {
	a.mu.Lock()
	a.state.Modal = Modal{}
	a.mu.Unlock()
}
