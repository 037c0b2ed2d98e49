package memory

import (
	"context"
	"fmt"
	"sync"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"
)

var _ service.IdentityProvider = (*Directory)(nil)

type User struct {
	ID   string
	Name string
	Role domain.Role
}

// Directory is an in-process identity provider for the memory driver and tests.
type Directory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewDirectory(users ...User) *Directory {
	d := &Directory{users: make(map[string]User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *Directory) Put(u User) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

func (d *Directory) RoleOf(_ context.Context, userID string) (domain.Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[userID]
	if !ok {
		return "", fmt.Errorf("memory.Directory.RoleOf: %s: %w", userID, e.ErrNotFound)
	}
	return u.Role, nil
}

func (d *Directory) NameOf(_ context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[userID]
	if !ok {
		return "", fmt.Errorf("memory.Directory.NameOf: %s: %w", userID, e.ErrNotFound)
	}
	return u.Name, nil
}
