package identity

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNoSession         = errors.New("session not found")
)

// Identity is the signed-in principal attached to a browser session.
type Identity struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Authenticator turns a client credential into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*Identity, error)
}

// Listener is notified with the new identity of sid, or nil on sign-out.
type Listener func(ctx context.Context, sid string, id *Identity)
