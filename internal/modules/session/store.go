// README: Session store; owns the authenticated identity of one client and persists it as a snapshot.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"semas/internal/kvstore"
	"semas/internal/modules/directory"
	"semas/internal/types"
)

type Option func(*Store)

// WithSnapshotTTL bounds the lifetime of the persisted snapshot.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithUnifiedDirectory makes Register add the new identity to the directory
// when the directory implements directory.Registrar.
func WithUnifiedDirectory(on bool) Option {
	return func(s *Store) { s.unified = on }
}

func WithIDGenerator(fn func() types.ID) Option {
	return func(s *Store) { s.newID = fn }
}

type Store struct {
	dir     directory.Directory
	kv      kvstore.Store
	key     string
	ttl     time.Duration
	unified bool
	newID   func() types.ID

	mu     sync.Mutex
	state  State
	user   *directory.User
	closed bool
}

func NewStore(dir directory.Directory, kv kvstore.Store, key string, opts ...Option) *Store {
	s := &Store{
		dir:   dir,
		kv:    kv,
		key:   key,
		newID: func() types.ID { return types.ID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns a copy of the authenticated identity.
func (s *Store) Current() (directory.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return directory.User{}, false
	}
	return *s.user, true
}

// Restore is the only transition out of loading. A missing or malformed snapshot yields anonymous.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.finishRestore(nil)
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		s.finishRestore(nil)
		return nil
	}
	u, err := decodeSnapshot(raw)
	if err != nil {
		_ = s.kv.Delete(ctx, s.key)
		s.finishRestore(nil)
		return nil
	}
	s.finishRestore(&u)
	return nil
}

func (s *Store) finishRestore(u *directory.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	if u != nil {
		s.state = StateAuthenticated
	} else {
		s.state = StateAnonymous
	}
}

func (s *Store) Login(ctx context.Context, email, password string) (directory.User, error) {
	if err := s.ready(); err != nil {
		return directory.User{}, err
	}
	u, ok, err := s.dir.ByEmail(ctx, email)
	if err != nil {
		return directory.User{}, err
	}
	if !ok {
		return directory.User{}, ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return directory.User{}, ErrWeakPassword
	}
	if err := s.commit(ctx, &u); err != nil {
		return directory.User{}, err
	}
	return u, nil
}

// Register creates a customer identity and signs it in.
func (s *Store) Register(ctx context.Context, name, email, password string) (directory.User, error) {
	if err := s.ready(); err != nil {
		return directory.User{}, err
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return directory.User{}, ErrInvalidInput
	}
	_, exists, err := s.dir.ByEmail(ctx, email)
	if err != nil {
		return directory.User{}, err
	}
	if exists {
		return directory.User{}, ErrEmailInUse
	}

	u := directory.User{
		ID:    s.newID(),
		Name:  name,
		Email: email,
		Role:  directory.RoleCustomer,
	}
	var reg directory.Registrar
	if s.unified {
		reg, _ = s.dir.(directory.Registrar)
	}
	if reg != nil {
		if err := reg.Add(ctx, u); err != nil {
			if errors.Is(err, directory.ErrDuplicateEmail) {
				return directory.User{}, ErrEmailInUse
			}
			return directory.User{}, err
		}
	}
	if err := s.commit(ctx, &u); err != nil {
		if reg != nil {
			// the identity must not outlive a registration that did not complete
			if rerr := reg.Remove(context.WithoutCancel(ctx), u.ID); rerr != nil {
				return directory.User{}, errors.Join(err, rerr)
			}
		}
		return directory.User{}, err
	}
	return u, nil
}

func (s *Store) Logout(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear session snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.state = StateAnonymous
	return nil
}

// UpdateIdentity merges patch into the session identity. The directory copy is not touched.
func (s *Store) UpdateIdentity(ctx context.Context, p Patch) (directory.User, error) {
	if err := s.ready(); err != nil {
		return directory.User{}, err
	}
	cur, ok := s.Current()
	if !ok {
		return directory.User{}, ErrNoSession
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return directory.User{}, ErrInvalidInput
		}
		cur.Name = name
	}
	if p.Phone != nil {
		cur.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Avatar != nil {
		cur.Avatar = *p.Avatar
	}
	if err := s.commit(ctx, &cur); err != nil {
		return directory.User{}, err
	}
	return cur, nil
}

// ResolveByID looks up a counterpart in the directory.
func (s *Store) ResolveByID(ctx context.Context, id types.ID) (directory.User, bool, error) {
	return s.dir.ByID(ctx, id)
}

// Close tears the store down; in-flight operations finishing afterwards do not mutate it.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Store) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.state.Ready() {
		return ErrNotReady
	}
	return nil
}

// commit persists u and makes it the session identity, unless ctx was cancelled
// or the store was closed while the caller was waiting.
func (s *Store) commit(ctx context.Context, u *directory.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, string(raw), s.ttl); err != nil {
		return fmt.Errorf("persist session snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	cp := *u
	s.user = &cp
	s.state = StateAuthenticated
	return nil
}

func decodeSnapshot(raw string) (directory.User, error) {
	var u directory.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return directory.User{}, err
	}
	if u.ID == "" || u.Email == "" || !u.Role.Valid() {
		return directory.User{}, errors.New("incomplete session snapshot")
	}
	return u, nil
}
