package storefront

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uikitstore/database"
	"uikitstore/models"
)

func TestPurchaseFlow_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.signedIn(t, "42")
	admin := f.signedIn(t, "admin")

	require.NoError(t, buyer.AddToCart(ctx, p1))
	require.NoError(t, buyer.AddToCart(ctx, p2))
	require.NoError(t, buyer.OpenCart())
	require.NoError(t, buyer.PreparePayment(ctx, buyer.Snapshot().Cart))
	assert.Equal(t, "55", buyer.Snapshot().Modal.Draft.TotalUSD.String())

	require.NoError(t, buyer.InitiatePayment(ctx, []string{p1, p2}, ""))
	s := buyer.Snapshot()
	assert.Empty(t, s.Cart)
	assert.Equal(t, ModalNone, s.Modal.Kind)
	require.Len(t, s.Payments, 1)
	payment := s.Payments[0]
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, "55", payment.UIPrice.String())
	assert.False(t, payment.Timestamp.IsZero())

	stored, err := f.mem.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, stored.Cart)

	_, err = admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)
	require.NoError(t, admin.SelectTab(TabVerifyPayment))
	require.Len(t, admin.Snapshot().PendingPayments, 1)

	require.NoError(t, admin.Verify(ctx, models.KindPayment, payment.ID))
	assert.Empty(t, admin.Snapshot().PendingPayments)
	require.Len(t, f.observer.settled, 1)
	assert.Equal(t, models.PaymentVerified, f.observer.settled[0].Status)

	buyer.Refresh(ctx)
	s = buyer.Snapshot()
	assert.ElementsMatch(t, []string{p1, p2}, s.Purchases)
	assert.Equal(t, models.PaymentVerified, s.Payments[0].Status)

	_, err = buyer.Download(p1)
	require.NoError(t, err)
	_, err = buyer.Download(p3)
	assert.ErrorIs(t, err, ErrNotPurchased)
}

func TestVerifyPayment_UnionsWithoutDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.CreateUser(ctx, &models.User{UID: "42", TelegramUsername: "ama", Purchases: []string{p1}}))
	buyer := f.signedIn(t, "42")
	admin := f.signedIn(t, "admin")

	require.NoError(t, buyer.InitiatePayment(ctx, []string{p1, p2}, ""))
	id := buyer.Snapshot().Payments[0].ID

	require.NoError(t, admin.Verify(ctx, models.KindPayment, id))

	user, err := f.mem.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{p1, p2}, user.Purchases)
}

func TestRejectPayment_LeavesPurchasesAndCannotResettle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.signedIn(t, "42")
	admin := f.signedIn(t, "admin")

	require.NoError(t, buyer.InitiatePayment(ctx, []string{p3}, ""))
	id := buyer.Snapshot().Payments[0].ID

	require.NoError(t, admin.Reject(ctx, models.KindPayment, id))

	p, err := f.mem.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, p.Status)
	user, err := f.mem.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, user.Purchases)

	err = admin.Verify(ctx, models.KindPayment, id)
	assert.ErrorIs(t, err, database.ErrPaymentSettled)
	p, err = f.mem.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, p.Status)
	user, err = f.mem.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, user.Purchases)
}

func TestVerifyAndReject_RequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.signedIn(t, "42")

	err := buyer.Verify(ctx, models.KindUI, uiStorageID(t, f.mem, u1))
	var aerr *ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindForbidden, aerr.Kind)
	assert.ErrorIs(t, err, ErrNotAdmin)

	assert.ErrorIs(t, f.app("anon").Reject(ctx, models.KindUser, "42"), ErrNotSignedIn)

	admin := f.signedIn(t, "admin")
	assert.ErrorIs(t, admin.Verify(ctx, models.VerifyKind("coupon"), "x"), ErrUnknownKind)
}

func TestVerifyUI_PublishesListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.signedIn(t, "admin")
	_, err := admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)

	require.NoError(t, admin.Verify(ctx, models.KindUI, uiStorageID(t, f.mem, u1)))

	s := admin.Snapshot()
	assert.Empty(t, s.UnverifiedUIs)
	_, ok := s.FindUI(u1)
	assert.True(t, ok)
	require.NoError(t, admin.ShowDetail(ctx, u1))
}

func TestRejectUI_RemovesListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.signedIn(t, "admin")
	_, err := admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)

	require.NoError(t, admin.Reject(ctx, models.KindUI, uiStorageID(t, f.mem, u1)))

	exists, err := f.mem.UIIDExists(ctx, u1)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, admin.Snapshot().UnverifiedUIs)
}

func TestModerateUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signedIn(t, "42")
	f.signedIn(t, "43")
	admin := f.signedIn(t, "admin")
	_, err := admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)
	require.Len(t, admin.Snapshot().UnverifiedUsers, 3)

	require.NoError(t, admin.Verify(ctx, models.KindUser, "42"))
	require.NoError(t, admin.Reject(ctx, models.KindUser, "43"))

	left := admin.Snapshot().UnverifiedUsers
	require.Len(t, left, 1)
	assert.Equal(t, "admin", left[0].UID)

	queue, err := f.mem.ListUnverifiedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "admin", queue[0].UID)
}

func TestVerify_FailureKeepsQueue(t *testing.T) {
	f := newFixture(t)
	store := newFaultyStore(f.mem)
	f.withStore(store)
	ctx := context.Background()
	buyer := f.signedIn(t, "42")
	admin := f.signedIn(t, "admin")
	require.NoError(t, buyer.InitiatePayment(ctx, []string{p1}, ""))
	_, err := admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)
	store.failOn("SettlePayment", errors.New("write conflict"))

	err = admin.Verify(ctx, models.KindPayment, buyer.Snapshot().Payments[0].ID)
	var aerr *ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindRemote, aerr.Kind)
	assert.Len(t, admin.Snapshot().PendingPayments, 1)
	assert.Empty(t, f.observer.settled)
}

func TestVerify_RetryFinishesFailedGrant(t *testing.T) {
	f := newFixture(t)
	store := newFaultyStore(f.mem)
	f.withStore(store)
	ctx := context.Background()
	buyer := f.signedIn(t, "42")
	admin := f.signedIn(t, "admin")
	require.NoError(t, buyer.InitiatePayment(ctx, []string{p1, p2}, ""))
	id := buyer.Snapshot().Payments[0].ID
	_, err := admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)

	store.failOn("AddToUserSet", errors.New("connection reset"))
	err = admin.Verify(ctx, models.KindPayment, id)
	var aerr *ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindRemote, aerr.Kind)
	assert.Len(t, admin.Snapshot().PendingPayments, 1)
	p, err := f.mem.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentVerified, p.Status)

	store.failOn("AddToUserSet", nil)
	require.NoError(t, admin.Verify(ctx, models.KindPayment, id))
	user, err := f.mem.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p1, p2}, user.Purchases)
	assert.Empty(t, admin.Snapshot().PendingPayments)
	require.Len(t, f.observer.settled, 1)

	// With the grant complete the payment is settled for good.
	err = admin.Verify(ctx, models.KindPayment, id)
	assert.ErrorIs(t, err, database.ErrPaymentSettled)
	assert.Len(t, f.observer.settled, 1)
}

func TestAdminQueues_PartialFailure(t *testing.T) {
	f := newFixture(t)
	store := newFaultyStore(f.mem)
	f.withStore(store)
	store.failOn("ListUnverifiedUsers", errors.New("timeout"))
	admin := f.signedIn(t, "admin")

	_, err := admin.Navigate(context.Background(), PageAdmin)
	require.NoError(t, err)

	s := admin.Snapshot()
	assert.Len(t, s.UnverifiedUIs, 1)
	assert.Empty(t, s.UnverifiedUsers)
}

func TestAssignPaymentMethod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.signedIn(t, "42")
	admin := f.signedIn(t, "admin")
	require.NoError(t, buyer.InitiatePayment(ctx, []string{p1}, ""))
	id := buyer.Snapshot().Payments[0].ID
	_, err := admin.Navigate(ctx, PageAdmin)
	require.NoError(t, err)

	require.NoError(t, admin.AssignPaymentMethod(ctx, id, "  MoMo "))

	assert.Equal(t, "MoMo", admin.Snapshot().PendingPayments[0].Method)
	p, err := f.mem.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "MoMo", p.Method)

	assert.ErrorIs(t, admin.AssignPaymentMethod(ctx, "missing", "MoMo"), database.ErrNotFound)
	assert.ErrorIs(t, buyer.AssignPaymentMethod(ctx, id, "MoMo"), ErrNotAdmin)
}

func validUpload() UploadForm {
	return UploadForm{
		Title:     "Analytics Suite",
		Desc:      "Charts and tables",
		Image:     "https://example.com/analytics.png",
		Category:  "dashboards",
		PriceGHC:  "300",
		PriceUSD:  "25",
		PriceUSDT: "25",
		PriceETH:  "0.01",
		PriceBNB:  "0.05",
	}
}

func TestUpload_CreatesUnverifiedListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.signedIn(t, "admin")

	require.NoError(t, admin.Upload(ctx, validUpload()))

	queue, err := f.mem.ListUnverifiedUIs(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	var uploaded *models.UI
	for i := range queue {
		if queue[i].Title == "Analytics Suite" {
			uploaded = &queue[i]
		}
	}
	require.NotNil(t, uploaded)
	assert.Regexp(t, `^ui-\d{5}$`, uploaded.UIID)
	assert.Equal(t, "0.01", uploaded.Price.ETH.String())
	assert.False(t, uploaded.Verified)

	s := admin.Snapshot()
	assert.Equal(t, UploadForm{}, s.Upload)
	assert.Len(t, s.UnverifiedUIs, 2)
	_, visible := s.FindUI(uploaded.UIID)
	assert.False(t, visible)
}

func TestUpload_RejectsInvalidFormWithoutWrite(t *testing.T) {
	cases := map[string]func(*UploadForm){
		"non-numeric price": func(u *UploadForm) { u.PriceUSD = "abc" },
		"negative price":    func(u *UploadForm) { u.PriceBNB = "-1" },
		"empty price":       func(u *UploadForm) { u.PriceGHC = " " },
		"missing title":     func(u *UploadForm) { u.Title = "" },
		"unknown category":  func(u *UploadForm) { u.Category = "games" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			store := newFaultyStore(f.mem)
			f.withStore(store)
			admin := f.signedIn(t, "admin")

			form := validUpload()
			mutate(&form)
			err := admin.Upload(context.Background(), form)

			assert.ErrorIs(t, err, ErrInvalidUpload)
			assert.Equal(t, 0, store.count("CreateUI"))
			assert.Equal(t, form, admin.Snapshot().Upload)
		})
	}
}

func TestUpload_NonNumericPriceMessage(t *testing.T) {
	f := newFixture(t)
	admin := f.signedIn(t, "admin")
	form := validUpload()
	form.PriceUSD = "abc"

	err := admin.Upload(context.Background(), form)
	var aerr *ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, aerr.Message, "Invalid USD price")
}

func TestUpload_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	buyer := f.signedIn(t, "42")
	assert.ErrorIs(t, buyer.Upload(context.Background(), validUpload()), ErrNotAdmin)
}

func TestModeration_SharedWithCallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.signedIn(t, "42")
	require.NoError(t, buyer.InitiatePayment(ctx, []string{p2}, ""))
	id := buyer.Snapshot().Payments[0].ID

	ok, err := f.mod.IsAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := f.mod.Verify(ctx, models.KindPayment, id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentVerified, p.Status)

	_, err = f.mod.Reject(ctx, models.KindPayment, id)
	assert.ErrorIs(t, err, database.ErrPaymentSettled)

	_, err = f.mod.Verify(ctx, models.VerifyKind("coupon"), id)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
