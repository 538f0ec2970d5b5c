package storefront

import (
	"context"
	"sync"
	"time"

	"uikitstore/identity"
)

// Registry holds one App per browser session.
type Registry struct {
	mu     sync.Mutex
	apps   map[string]*App
	newApp func(sid string) *App
}

func NewRegistry(newApp func(sid string) *App) *Registry {
	return &Registry{
		apps:   make(map[string]*App),
		newApp: newApp,
	}
}

// GetOrCreate returns the App for sid and whether it was just created.
func (r *Registry) GetOrCreate(sid string) (*App, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if app, ok := r.apps[sid]; ok {
		return app, false
	}
	app := r.newApp(sid)
	r.apps[sid] = app
	return app, true
}

func (r *Registry) Get(sid string) (*App, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[sid]
	return app, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// OnIdentityChanged routes identity notifications to the session they belong to.
// It matches identity.Listener.
func (r *Registry) OnIdentityChanged(ctx context.Context, sid string, id *identity.Identity) {
	app, ok := r.Get(sid)
	if !ok {
		return
	}
	app.OnAuthStateChanged(ctx, id)
}

// EvictIdle drops sessions with no activity since maxIdle before now.
func (r *Registry) EvictIdle(now time.Time, maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for sid, app := range r.apps {
		if now.Sub(app.LastSeen()) > maxIdle {
			delete(r.apps, sid)
			evicted++
		}
	}
	return evicted
}
