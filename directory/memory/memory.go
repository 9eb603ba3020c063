// Package memory is an in-process goIdentity.UserDirectory.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/google/uuid"
)

// Directory keeps users in a map keyed by email.
type Directory struct {
	mu    sync.RWMutex
	users map[string]goIdentity.User
	ids   map[string]string
	now   func() time.Time
}

func New() *Directory {
	return &Directory{
		users: make(map[string]goIdentity.User),
		ids:   make(map[string]string),
		now:   time.Now,
	}
}

func (d *Directory) FindByEmail(_ context.Context, email string) (*goIdentity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[email]
	if !ok {
		return nil, goIdentity.ErrUserNotFound
	}
	return &u, nil
}

func (d *Directory) ExistsByEmail(_ context.Context, email string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.users[email]
	return ok, nil
}

// Save inserts users without an ID and replaces the record otherwise.
func (d *Directory) Save(_ context.Context, user *goIdentity.User) (*goIdentity.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u := *user
	now := d.now().UTC()
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	if u.ID == "" {
		if _, ok := d.users[u.Email]; ok {
			return nil, goIdentity.ErrEmailExists
		}
		u.ID = uuid.NewString()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		d.users[u.Email] = u
		d.ids[u.ID] = u.Email
		out := u
		return &out, nil
	}

	prev, ok := d.ids[u.ID]
	if !ok {
		return nil, fmt.Errorf("memory: %w: id %s", goIdentity.ErrUserNotFound, u.ID)
	}
	if prev != u.Email {
		if _, taken := d.users[u.Email]; taken {
			return nil, goIdentity.ErrEmailExists
		}
		delete(d.users, prev)
	}
	d.users[u.Email] = u
	d.ids[u.ID] = u.Email
	out := u
	return &out, nil
}

// Len returns the number of stored users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
