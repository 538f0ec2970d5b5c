package storefront

import (
	"errors"
	"fmt"
)

// GenericFailure is shown for every remote failure.
const GenericFailure = "Something went wrong. Please try again."

var (
	ErrNotSignedIn      = errors.New("not signed in")
	ErrAlreadyInCart    = errors.New("item already in cart")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrTelegramRequired = errors.New("telegram username required")
	ErrNoValidItems     = errors.New("no valid items selected")
	ErrNotPurchased     = errors.New("item not purchased")
	ErrNotAdmin         = errors.New("admin capability required")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrUnknownPage      = errors.New("unknown page")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidTab       = errors.New("tab does not belong to page")
	ErrInvalidTelegram  = errors.New("invalid telegram username")
	ErrInvalidUpload    = errors.New("invalid upload")
	ErrSessionChanged   = errors.New("session changed during request")
	ErrUnknownKind      = errors.New("unknown verification kind")
)

type ErrorKind string

const (
	KindPrecondition ErrorKind = "precondition"
	KindRemote       ErrorKind = "remote"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
)

// ActionError is returned by every storefront action. Message is safe to show.
type ActionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func preconditionErr(err error, message string) *ActionError {
	return &ActionError{Kind: KindPrecondition, Message: message, Err: err}
}

func forbiddenErr(message string) *ActionError {
	return &ActionError{Kind: KindForbidden, Message: message, Err: ErrNotAdmin}
}

func notFoundErr(err error, message string) *ActionError {
	return &ActionError{Kind: KindNotFound, Message: message, Err: err}
}

func remoteErr(err error) *ActionError {
	return &ActionError{Kind: KindRemote, Message: GenericFailure, Err: err}
}

func uploadErr(field, reason string) *ActionError {
	return &ActionError{
		Kind:    KindPrecondition,
		Message: fmt.Sprintf("Invalid %s: %s.", field, reason),
		Err:     fmt.Errorf("%w: %s", ErrInvalidUpload, field),
	}
}
