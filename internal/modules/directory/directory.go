// README: Directory contract and the seeded in-memory implementation.
package directory

import (
	"context"
	"errors"
	"sync"

	"semas/internal/seed"
	"semas/internal/types"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidUser    = errors.New("invalid user")
)

// Directory resolves known identities. Absence is reported through ok, never as an error.
type Directory interface {
	ByID(ctx context.Context, id types.ID) (User, bool, error)
	ByEmail(ctx context.Context, email string) (User, bool, error)
}

// Registrar is implemented by directories that accept new identities.
// Remove undoes an Add whose caller failed afterwards; removing an unknown id is a no-op.
type Registrar interface {
	Add(ctx context.Context, u User) error
	Remove(ctx context.Context, id types.ID) error
}

type MemoryDirectory struct {
	mu      sync.RWMutex
	byID    map[types.ID]User
	byEmail map[string]types.ID
}

func NewMemoryDirectory(users ...User) *MemoryDirectory {
	d := &MemoryDirectory{
		byID:    make(map[types.ID]User, len(users)),
		byEmail: make(map[string]types.ID, len(users)),
	}
	for _, u := range users {
		d.byID[u.ID] = u
		d.byEmail[NormalizeEmail(u.Email)] = u.ID
	}
	return d
}

// NewSeededDirectory returns a directory holding the demo identities.
func NewSeededDirectory() (*MemoryDirectory, error) {
	users, err := SeedUsers()
	if err != nil {
		return nil, err
	}
	return NewMemoryDirectory(users...), nil
}

func (d *MemoryDirectory) ByID(ctx context.Context, id types.ID) (User, bool, error) {
	if err := ctx.Err(); err != nil {
		return User{}, false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	return u, ok, nil
}

func (d *MemoryDirectory) ByEmail(ctx context.Context, email string) (User, bool, error) {
	if err := ctx.Err(); err != nil {
		return User{}, false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, false, nil
	}
	return d.byID[id], true, nil
}

func (d *MemoryDirectory) Add(ctx context.Context, u User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" || u.Email == "" || !u.Role.Valid() {
		return ErrInvalidUser
	}
	key := NormalizeEmail(u.Email)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byEmail[key]; exists {
		return ErrDuplicateEmail
	}
	d.byID[u.ID] = u
	d.byEmail[key] = u.ID
	return nil
}

func (d *MemoryDirectory) Remove(ctx context.Context, id types.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[id]
	if !ok {
		return nil
	}
	delete(d.byID, id)
	delete(d.byEmail, NormalizeEmail(u.Email))
	return nil
}

// SeedUsers converts the embedded seed identities.
func SeedUsers() ([]User, error) {
	data, err := seed.Load()
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(data.Users))
	for _, su := range data.Users {
		role, ok := ParseRole(su.Role)
		if !ok {
			return nil, ErrInvalidUser
		}
		users = append(users, User{
			ID:     types.ID(su.ID),
			Name:   su.Name,
			Email:  su.Email,
			Role:   role,
			Avatar: su.Avatar,
			Phone:  su.Phone,
		})
	}
	return users, nil
}
