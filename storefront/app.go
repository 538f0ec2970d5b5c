package storefront

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"uikitstore/database"
	"uikitstore/identity"
	"uikitstore/logger"
	"uikitstore/models"
)

// IdentityProvider is the identity capability an App signs in and out through.
type IdentityProvider interface {
	SignIn(ctx context.Context, sid, credential string) (*identity.Identity, error)
	SignOut(ctx context.Context, sid string) error
}

// PaymentObserver hears about payments entering and leaving the pending queue.
type PaymentObserver interface {
	PaymentCreated(ctx context.Context, p *models.Payment, buyer *models.User)
	PaymentSettled(ctx context.Context, p *models.Payment)
}

type nopObserver struct{}

func (nopObserver) PaymentCreated(context.Context, *models.Payment, *models.User) {}
func (nopObserver) PaymentSettled(context.Context, *models.Payment)              {}

type Options struct {
	PaymentContact  string
	DownloadBaseURL string
	Now             func() time.Time
}

// App is the per-session storefront: it owns a State and runs every action
// against the store before mutating that State.
type App struct {
	sid        string
	store      database.Store
	identity   IdentityProvider
	moderation *Moderation
	opts       Options

	mu       sync.Mutex
	state    *State
	epoch    uint64
	lastSeen time.Time

	fields fieldLocks
}

func New(sid string, store database.Store, ident IdentityProvider, moderation *Moderation, opts Options) *App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PaymentContact == "" {
		opts.PaymentContact = "MittelyPay"
	}
	if moderation == nil {
		moderation = NewModeration(store, nil)
	}
	return &App{
		sid:        sid,
		store:      store,
		identity:   ident,
		moderation: moderation,
		opts:       opts,
		state:      newState(),
		lastSeen:   opts.Now(),
		fields:     fieldLocks{locks: make(map[string]*sync.Mutex)},
	}
}

func (a *App) SID() string {
	return a.sid
}

// Snapshot returns a deep copy of the current State.
func (a *App) Snapshot() *State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Touch records activity for idle eviction.
func (a *App) Touch() {
	a.mu.Lock()
	a.lastSeen = a.opts.Now()
	a.mu.Unlock()
}

func (a *App) LastSeen() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSeen
}

// ClearFlash drops the last user-visible message.
func (a *App) ClearFlash() {
	a.mu.Lock()
	a.state.Flash = nil
	a.mu.Unlock()
}

// SetTheme restores the theme persisted on the client.
func (a *App) SetTheme(theme Theme) {
	a.mu.Lock()
	a.state.Theme = theme
	a.mu.Unlock()
}

// session returns the signed-in identity and the epoch it belongs to.
func (a *App) session() (*identity.Identity, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Session == nil {
		return nil, a.epoch
	}
	id := *a.state.Session
	return &id, a.epoch
}

// read runs fn against the live State under the lock.
func (a *App) read(fn func(s *State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.state)
}

// commit applies fn only if no session change happened since epoch.
func (a *App) commit(epoch uint64, fn func(s *State)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.epoch != epoch {
		return preconditionErr(ErrSessionChanged, "Your session changed. Please try again.")
	}
	fn(a.state)
	return nil
}

func (a *App) flash(level FlashLevel, message string) {
	a.mu.Lock()
	a.state.Flash = &Flash{Level: level, Message: message}
	a.mu.Unlock()
}

// fail records err as the visible flash and returns it.
func (a *App) fail(err *ActionError) error {
	a.flash(FlashError, err.Message)
	return err
}

// remoteFailure logs a store failure and returns the generic action error.
func (a *App) remoteFailure(ctx context.Context, op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	logger.Error(ctx, "Storefront action failed", fields...)
	return a.fail(remoteErr(err))
}

const fieldTelegramUsername = "telegram_username"

// fieldLocks orders writes to one user field within a session.
type fieldLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (f *fieldLocks) lock(field string) func() {
	f.mu.Lock()
	l, ok := f.locks[field]
	if !ok {
		l = &sync.Mutex{}
		f.locks[field] = l
	}
	f.mu.Unlock()

	l.Lock()
	return l.Unlock
}
