package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"uikitstore/models"
)

// MemoryStore is an in-process Store used for local development and tests.
// Reads return copies so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	uis      map[string]*models.UI
	payments map[string]*models.Payment
	admins   map[string]struct{}
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		uis:      make(map[string]*models.UI),
		payments: make(map[string]*models.Payment),
		admins:   make(map[string]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddAdmin grants the admin capability to uid.
func (s *MemoryStore) AddAdmin(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[uid] = struct{}{}
}

func (s *MemoryStore) GetUser(_ context.Context, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UID]; ok {
		return nil
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.UID] = copyUser(user)
	return nil
}

func (s *MemoryStore) SetTelegramUsername(_ context.Context, uid, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return ErrNotFound
	}
	u.TelegramUsername = username
	return nil
}

func (s *MemoryStore) AddToUserSet(_ context.Context, uid string, field models.UserSetField, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.userSet(uid, field)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !contains(*set, id) {
			*set = append(*set, id)
		}
	}
	return nil
}

func (s *MemoryStore) RemoveFromUserSet(_ context.Context, uid string, field models.UserSetField, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.userSet(uid, field)
	if err != nil {
		return err
	}
	kept := (*set)[:0]
	for _, v := range *set {
		if v != id {
			kept = append(kept, v)
		}
	}
	*set = kept
	return nil
}

func (s *MemoryStore) ClearUserSet(_ context.Context, uid string, field models.UserSetField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.userSet(uid, field)
	if err != nil {
		return err
	}
	*set = []string{}
	return nil
}

func (s *MemoryStore) userSet(uid string, field models.UserSetField) (*[]string, error) {
	u, ok := s.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	switch field {
	case models.FieldBookmarks:
		return &u.Bookmarks, nil
	case models.FieldCart:
		return &u.Cart, nil
	case models.FieldPurchases:
		return &u.Purchases, nil
	}
	return nil, ErrInvalidField
}

func (s *MemoryStore) ListUnverifiedUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.User
	for _, u := range s.users {
		if !u.Verified && !u.Rejected {
			out = append(out, *copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetUserVerified(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return ErrNotFound
	}
	u.Verified = true
	return nil
}

func (s *MemoryStore) RejectUser(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return ErrNotFound
	}
	u.Verified = false
	u.Rejected = true
	return nil
}

func (s *MemoryStore) IsAdmin(_ context.Context, uid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.admins[uid]
	return ok, nil
}

func (s *MemoryStore) ListUIs(_ context.Context) ([]models.UI, error) {
	return s.listUIs(func(models.UI) bool { return true }), nil
}

func (s *MemoryStore) ListUnverifiedUIs(_ context.Context) ([]models.UI, error) {
	return s.listUIs(func(ui models.UI) bool { return !ui.Verified }), nil
}

func (s *MemoryStore) listUIs(keep func(models.UI) bool) []models.UI {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.UI
	for _, ui := range s.uis {
		if keep(*ui) {
			out = append(out, *ui)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UIID < out[j].UIID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) UIIDExists(_ context.Context, uiID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ui := range s.uis {
		if ui.UIID == uiID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateUI(_ context.Context, ui *models.UI) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.uis {
		if existing.UIID == ui.UIID {
			return fmt.Errorf("duplicate ui_id %s", ui.UIID)
		}
	}
	ui.ID = uuid.NewString()
	ui.CreatedAt = s.now()
	stored := *ui
	s.uis[ui.ID] = &stored
	return nil
}

func (s *MemoryStore) SetUIVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ui, ok := s.uis[id]
	if !ok {
		return ErrNotFound
	}
	ui.Verified = true
	return nil
}

func (s *MemoryStore) DeleteUI(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uis[id]; !ok {
		return ErrNotFound
	}
	delete(s.uis, id)
	return nil
}

func (s *MemoryStore) CreatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.NewString()
	p.Timestamp = s.now()
	s.payments[p.ID] = copyPayment(p)
	return nil
}

func (s *MemoryStore) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPayment(p), nil
}

func (s *MemoryStore) ListPaymentsByUser(_ context.Context, uid string) ([]models.Payment, error) {
	return s.listPayments(func(p *models.Payment) bool { return p.UserID == uid }), nil
}

func (s *MemoryStore) ListPendingPayments(_ context.Context) ([]models.Payment, error) {
	return s.listPayments(func(p *models.Payment) bool {
		return !p.Verified && p.Status == models.PaymentPending
	}), nil
}

func (s *MemoryStore) listPayments(keep func(*models.Payment) bool) []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Payment
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, *copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (s *MemoryStore) SetPaymentMethod(_ context.Context, id, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Method = method
	return nil
}

func (s *MemoryStore) SettlePayment(_ context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	if status != models.PaymentVerified && status != models.PaymentRejected {
		return nil, fmt.Errorf("cannot settle payment as %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Settled() {
		return nil, ErrPaymentSettled
	}
	p.Status = status
	p.Verified = status == models.PaymentVerified
	return copyPayment(p), nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Bookmarks = cloneIDs(u.Bookmarks)
	c.Cart = cloneIDs(u.Cart)
	c.Purchases = cloneIDs(u.Purchases)
	return &c
}

func copyPayment(p *models.Payment) *models.Payment {
	c := *p
	c.UIIDs = cloneIDs(p.UIIDs)
	return &c
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
