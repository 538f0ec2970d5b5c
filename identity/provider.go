package identity

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"uikitstore/logger"
)

// Provider is the identity capability consumed by the storefront: sign-in,
// sign-out, current-session lookup and change notification.
type Provider struct {
	auth     Authenticator
	sessions *SessionStore

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

func NewProvider(auth Authenticator, sessions *SessionStore) *Provider {
	return &Provider{
		auth:      auth,
		sessions:  sessions,
		listeners: make(map[int]Listener),
	}
}

// SignIn authenticates credential, binds the identity to sid and notifies listeners.
func (p *Provider) SignIn(ctx context.Context, sid, credential string) (*Identity, error) {
	id, err := p.auth.Authenticate(ctx, credential)
	if err != nil {
		return nil, err
	}
	if err := p.sessions.Save(ctx, sid, id); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Signed in", zap.String("uid", id.UID))
	p.notify(ctx, sid, id)
	return id, nil
}

func (p *Provider) SignOut(ctx context.Context, sid string) error {
	if err := p.sessions.Delete(ctx, sid); err != nil {
		return err
	}
	p.notify(ctx, sid, nil)
	return nil
}

// Current returns the identity bound to sid, or nil when the session is anonymous.
func (p *Provider) Current(ctx context.Context, sid string) (*Identity, error) {
	id, err := p.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}
	if err := p.sessions.Touch(ctx, sid); err != nil && !errors.Is(err, ErrNoSession) {
		logger.Warn(ctx, "Failed to extend session", zap.Error(err))
	}
	return id, nil
}

// Subscribe registers l and returns a function that removes it.
func (p *Provider) Subscribe(l Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(ctx context.Context, sid string, id *Identity) {
	p.mu.RLock()
	ls := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.RUnlock()

	for _, l := range ls {
		l(ctx, sid, id)
	}
}
