package storefront

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"uikitstore/database"
	"uikitstore/identity"
	"uikitstore/models"
)

const (
	p1 = "ui-10001"
	p2 = "ui-10002"
	p3 = "ui-10003"
	u1 = "ui-19999"
)

func listing(uiID, title, category string, usd int64, verified bool) models.UI {
	return models.UI{
		UIID:     uiID,
		Title:    title,
		Desc:     title + " for modern products",
		Image:    "https://example.com/" + uiID + ".png",
		Category: category,
		Price: models.Price{
			GHC:  decimal.NewFromInt(usd * 6),
			USD:  decimal.NewFromInt(usd),
			USDT: decimal.NewFromInt(usd),
		},
		Verified: verified,
	}
}

func testCatalog() []models.UI {
	return []models.UI{
		listing(p1, "Creative Dashboard Kit", "dashboards", 25, true),
		listing(p2, "Landing Page Template", "landing", 30, true),
		listing(p3, "Form Elements Pack", "components", 10, true),
		listing(u1, "Secret Draft Kit", "dashboards", 99, false),
	}
}

// fakeIdentity signs in any credential as the uid of the same name.
type fakeIdentity struct {
	mu         sync.Mutex
	identities map[string]*identity.Identity
	signInErr  error
	signOutErr error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{identities: make(map[string]*identity.Identity)}
}

func (f *fakeIdentity) SignIn(_ context.Context, _ string, credential string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if id, ok := f.identities[credential]; ok {
		return id, nil
	}
	return &identity.Identity{UID: credential, Name: "User " + credential, Username: "user" + credential}, nil
}

func (f *fakeIdentity) SignOut(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutErr
}

// faultyStore wraps a Store with injectable failures, call counts and
// optional gates: one holds AddToUserSet before its write, the other holds
// GetUser after its read.
type faultyStore struct {
	database.Store

	mu      sync.Mutex
	fail    map[string]error
	calls   map[string]int
	entered chan struct{}
	release chan struct{}

	readEntered chan struct{}
	readRelease chan struct{}
}

func newFaultyStore(inner database.Store) *faultyStore {
	return &faultyStore{Store: inner, fail: make(map[string]error), calls: make(map[string]int)}
}

func (f *faultyStore) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *faultyStore) failOn(op string, err error) {
	f.mu.Lock()
	f.fail[op] = err
	f.mu.Unlock()
}

func (f *faultyStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultyStore) AddToUserSet(ctx context.Context, uid string, field models.UserSetField, ids ...string) error {
	if err := f.hit("AddToUserSet"); err != nil {
		return err
	}
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	return f.Store.AddToUserSet(ctx, uid, field, ids...)
}

func (f *faultyStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	user, err := f.Store.GetUser(ctx, uid)
	if f.readRelease != nil {
		f.readEntered <- struct{}{}
		<-f.readRelease
	}
	return user, err
}

func (f *faultyStore) RemoveFromUserSet(ctx context.Context, uid string, field models.UserSetField, id string) error {
	if err := f.hit("RemoveFromUserSet"); err != nil {
		return err
	}
	return f.Store.RemoveFromUserSet(ctx, uid, field, id)
}

func (f *faultyStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	if err := f.hit("CreatePayment"); err != nil {
		return err
	}
	return f.Store.CreatePayment(ctx, p)
}

func (f *faultyStore) CreateUI(ctx context.Context, ui *models.UI) error {
	if err := f.hit("CreateUI"); err != nil {
		return err
	}
	return f.Store.CreateUI(ctx, ui)
}

func (f *faultyStore) ListPaymentsByUser(ctx context.Context, uid string) ([]models.Payment, error) {
	if err := f.hit("ListPaymentsByUser"); err != nil {
		return nil, err
	}
	return f.Store.ListPaymentsByUser(ctx, uid)
}

func (f *faultyStore) ListUnverifiedUsers(ctx context.Context) ([]models.User, error) {
	if err := f.hit("ListUnverifiedUsers"); err != nil {
		return nil, err
	}
	return f.Store.ListUnverifiedUsers(ctx)
}

func (f *faultyStore) SettlePayment(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	if err := f.hit("SettlePayment"); err != nil {
		return nil, err
	}
	return f.Store.SettlePayment(ctx, id, status)
}

type recordingObserver struct {
	mu      sync.Mutex
	created []models.Payment
	settled []models.Payment
}

func (r *recordingObserver) PaymentCreated(_ context.Context, p *models.Payment, _ *models.User) {
	r.mu.Lock()
	r.created = append(r.created, *p)
	r.mu.Unlock()
}

func (r *recordingObserver) PaymentSettled(_ context.Context, p *models.Payment) {
	r.mu.Lock()
	r.settled = append(r.settled, *p)
	r.mu.Unlock()
}

type fixture struct {
	mem      *database.MemoryStore
	store    database.Store
	ident    *fakeIdentity
	observer *recordingObserver
	mod      *Moderation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := database.NewMemoryStore()
	mem.AddAdmin("admin")
	_, err := database.SeedCatalog(context.Background(), mem, testCatalog())
	require.NoError(t, err)

	obs := &recordingObserver{}
	return &fixture{
		mem:      mem,
		store:    mem,
		ident:    newFakeIdentity(),
		observer: obs,
		mod:      NewModeration(mem, obs),
	}
}

// withStore routes the fixture's apps through store.
func (f *fixture) withStore(store database.Store) *fixture {
	f.store = store
	f.mod = NewModeration(store, f.observer)
	return f
}

func (f *fixture) app(sid string) *App {
	return New(sid, f.store, f.ident, f.mod, Options{DownloadBaseURL: "https://cdn.example.com/kits/"})
}

// signedIn returns an App on the home page signed in as uid.
func (f *fixture) signedIn(t *testing.T, uid string) *App {
	t.Helper()
	ctx := context.Background()
	app := f.app("sid-" + uid)
	_, err := app.Navigate(ctx, PageHome)
	require.NoError(t, err)
	require.NoError(t, app.SignIn(ctx, uid))
	return app
}

func uiStorageID(t *testing.T, store database.Store, uiID string) string {
	t.Helper()
	uis, err := store.ListUIs(context.Background())
	require.NoError(t, err)
	for _, ui := range uis {
		if ui.UIID == uiID {
			return ui.ID
		}
	}
	t.Fatalf("listing %s not found", uiID)
	return ""
}
