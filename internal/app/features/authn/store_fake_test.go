package authn

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/contesthub/internal/app/store/accounts"
	"github.com/dalemusser/contesthub/internal/app/system/normalize"
	"github.com/dalemusser/contesthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory AccountStore. It hands out copies so callers
// only change stored state through Save.
type memStore struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*models.Account
	saves   int
	saveErr error // returned by Save when set
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[primitive.ObjectID]*models.Account)}
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.Tags = append([]string(nil), a.Tags...)
	c.Logins = append([]models.LoginEvent(nil), a.Logins...)
	c.LockUntil = cloneTime(a.LockUntil)
	c.LastLogin = cloneTime(a.LastLogin)
	c.ResetPasswordExpires = cloneTime(a.ResetPasswordExpires)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (m *memStore) find(match func(*models.Account) bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (m *memStore) FindByLogin(_ context.Context, identifier string) (*models.Account, error) {
	ident := normalize.Identifier(identifier)
	canon := normalize.CanonicalEmail(ident)
	return m.find(func(a *models.Account) bool {
		return a.Local.Username == ident || a.Local.Email == ident || (canon != "" && a.Local.Email == canon)
	})
}

func (m *memStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.Account, error) {
	u := normalize.Username(username)
	e := normalize.CanonicalEmail(email)
	if u == "" && e == "" {
		return nil, accounts.ErrNotFound
	}
	return m.find(func(a *models.Account) bool {
		return (u != "" && a.Local.Username == u) || (e != "" && a.Local.Email == e)
	})
}

func (m *memStore) FindByResetToken(_ context.Context, token string, now time.Time) (*models.Account, error) {
	if token == "" {
		return nil, accounts.ErrNotFound
	}
	return m.find(func(a *models.Account) bool {
		return a.ResetPasswordToken == token && a.ResetPasswordExpires != nil && a.ResetPasswordExpires.After(now)
	})
}

func (m *memStore) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Local.Username = normalize.Username(a.Local.Username)
	a.Local.Email = normalize.CanonicalEmail(a.Local.Email)
	for _, other := range m.byID {
		if other.Local.Username == a.Local.Username {
			return accounts.ErrDuplicateUsername
		}
		if other.Local.Email == a.Local.Email {
			return accounts.ErrDuplicateEmail
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Modified.IsZero() {
		a.Modified = a.Created
	}
	m.byID[a.ID] = cloneAccount(a)
	return nil
}

func (m *memStore) Save(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.byID[a.ID]; !ok {
		return accounts.ErrNotFound
	}
	m.saves++
	m.byID[a.ID] = cloneAccount(a)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.ID == id })
}

func (m *memStore) DeleteByIdentifier(_ context.Context, uid string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident := normalize.Identifier(uid)
	var n int64
	for id, a := range m.byID {
		if a.Local.Username == ident || a.Local.Email == ident || id.Hex() == uid {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

// get returns the stored account by username, bypassing the copy rules.
func (m *memStore) get(username string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Local.Username == username {
			return cloneAccount(a)
		}
	}
	return nil
}

// update applies fn to the stored account directly.
func (m *memStore) update(username string, fn func(*models.Account)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Local.Username == username {
			fn(a)
		}
	}
}
