package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semas/internal/kvstore"
	"semas/internal/modules/directory"
	"semas/internal/types"
)

func newDirectory(t *testing.T) *directory.MemoryDirectory {
	t.Helper()
	dir, err := directory.NewSeededDirectory()
	require.NoError(t, err)
	return dir
}

func restored(t *testing.T, dir directory.Directory, kv kvstore.Store, opts ...Option) *Store {
	t.Helper()
	s := NewStore(dir, kv, Key("test"), opts...)
	require.NoError(t, s.Restore(context.Background()))
	return s
}

// slowDirectory holds lookups until release is closed or the context ends.
type slowDirectory struct {
	directory.Directory
	release chan struct{}
}

func (d slowDirectory) ByEmail(ctx context.Context, email string) (directory.User, bool, error) {
	select {
	case <-d.release:
	case <-ctx.Done():
		return directory.User{}, false, ctx.Err()
	}
	return d.Directory.ByEmail(ctx, email)
}

// brokenKV fails every write.
type brokenKV struct {
	kvstore.Store
}

func (brokenKV) Set(context.Context, string, string, time.Duration) error {
	return errors.New("kv unavailable")
}

// cancelOnSet cancels the caller's context while the snapshot is being written.
type cancelOnSet struct {
	kvstore.Store
	cancel context.CancelFunc
}

func (c cancelOnSet) Set(context.Context, string, string, time.Duration) error {
	c.cancel()
	return context.Canceled
}

func TestRestoreWithoutSnapshotIsAnonymous(t *testing.T) {
	s := NewStore(newDirectory(t), kvstore.NewMemoryStore(), Key("fresh"))
	assert.Equal(t, StateUninitialized, s.State())

	_, err := s.Login(context.Background(), "jane@example.com", "secret")
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.Restore(context.Background()))
	assert.Equal(t, StateAnonymous, s.State())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestLoginRoundTripAcrossRestart(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	kv := kvstore.NewMemoryStore()

	s := restored(t, dir, kv)
	u, err := s.Login(ctx, "MIKE@semas.com", "abc")
	require.NoError(t, err)
	assert.Equal(t, types.ID("2"), u.ID)
	assert.Equal(t, StateAuthenticated, s.State())

	// A new store over the same key behaves like a fresh process.
	again := restored(t, dir, kv)
	assert.Equal(t, StateAuthenticated, again.State())
	cur, ok := again.Current()
	require.True(t, ok)
	assert.Equal(t, "mike@semas.com", cur.Email)
	assert.Equal(t, directory.RoleTechnician, cur.Role)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown email", "nobody@example.com", "secret", ErrInvalidCredentials},
		{"short password", "jane@example.com", "ab", ErrWeakPassword},
		{"unknown email with short password", "nobody@example.com", "a", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := restored(t, newDirectory(t), kvstore.NewMemoryStore())
			_, err := s.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, StateAnonymous, s.State())
		})
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	kv := kvstore.NewMemoryStore()
	s := restored(t, dir, kv, WithIDGenerator(func() types.ID { return "u-new" }))

	_, err := s.Register(ctx, "Jane Again", "JANE@example.com", "pw1")
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = s.Register(ctx, "  ", "x@example.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	u, err := s.Register(ctx, "Sara", "sara@example.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, types.ID("u-new"), u.ID)
	assert.Equal(t, directory.RoleCustomer, u.Role)
	assert.Equal(t, StateAuthenticated, s.State())

	// Without the unified directory the new identity is session-only.
	_, found, err := dir.ByEmail(ctx, "sara@example.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegisterUnifiedDirectory(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	s := restored(t, dir, kvstore.NewMemoryStore(), WithUnifiedDirectory(true))

	u, err := s.Register(ctx, "Sara", "sara@example.com", "pw1")
	require.NoError(t, err)

	got, found, err := dir.ByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Sara", got.Name)

	other := restored(t, dir, kvstore.NewMemoryStore(), WithUnifiedDirectory(true))
	_, err = other.Login(ctx, "sara@example.com", "pw1")
	assert.NoError(t, err)
}

func TestLogoutClearsSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	kv := kvstore.NewMemoryStore()
	s := restored(t, dir, kv)

	_, err := s.Login(ctx, "jane@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, StateAnonymous, s.State())

	_, ok, err := kv.Get(ctx, Key("test"))
	require.NoError(t, err)
	assert.False(t, ok)

	again := restored(t, dir, kv)
	assert.Equal(t, StateAnonymous, again.State())
}

func TestUpdateIdentity(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	kv := kvstore.NewMemoryStore()
	s := restored(t, dir, kv)

	name := "Jane D."
	_, err := s.UpdateIdentity(ctx, Patch{Name: &name})
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = s.Login(ctx, "jane@example.com", "secret")
	require.NoError(t, err)

	phone := "+966-55-000-0000"
	u, err := s.UpdateIdentity(ctx, Patch{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Jane D.", u.Name)
	assert.Equal(t, phone, u.Phone)
	assert.Equal(t, "jane@example.com", u.Email)

	empty := ""
	_, err = s.UpdateIdentity(ctx, Patch{Name: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Persisted, but the directory still serves the seeded profile.
	cur, _ := restored(t, dir, kv).Current()
	assert.Equal(t, "Jane D.", cur.Name)
	seeded, _, err := dir.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", seeded.Name)
}

func TestMalformedSnapshotIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	for _, raw := range []string{"{not json", `{"id":"1","email":"","role":"customer"}`, `{"id":"1","email":"a@b.c","role":"pilot"}`} {
		require.NoError(t, kv.Set(ctx, Key("test"), raw, 0))
		s := restored(t, newDirectory(t), kv)
		assert.Equal(t, StateAnonymous, s.State(), raw)
		_, ok, err := kv.Get(ctx, Key("test"))
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestCancelledLoginLeavesStateUntouched(t *testing.T) {
	slow := slowDirectory{Directory: newDirectory(t), release: make(chan struct{})}
	kv := kvstore.NewMemoryStore()
	s := restored(t, slow, kv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Login(ctx, "jane@example.com", "secret")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("login did not observe cancellation")
	}
	assert.Equal(t, StateAnonymous, s.State())
	_, ok, _ := kv.Get(context.Background(), Key("test"))
	assert.False(t, ok)
}

func TestClosedStoreIgnoresLateCompletion(t *testing.T) {
	slow := slowDirectory{Directory: newDirectory(t), release: make(chan struct{})}
	s := restored(t, slow, kvstore.NewMemoryStore())

	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "jane@example.com", "secret")
		done <- err
	}()
	s.Close()
	close(slow.release)

	err := <-done
	assert.ErrorIs(t, err, ErrClosed)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newDirectory(t), kvstore.NewMemoryStore())

	sid, s, err := m.New(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sid)
	_, err = s.Login(ctx, "admin@semas.com", "admin")
	require.NoError(t, err)

	reopened, err := m.Open(ctx, sid)
	require.NoError(t, err)
	u, ok := reopened.Current()
	require.True(t, ok)
	assert.Equal(t, directory.RoleAdmin, u.Role)

	other, err := m.Open(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, other.State())
}

func TestRegisterUnifiedRollsBackOnFailedCommit(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	kv := kvstore.NewMemoryStore()
	s := restored(t, dir, brokenKV{Store: kv}, WithUnifiedDirectory(true))

	_, err := s.Register(ctx, "Sara", "sara@example.com", "pw1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailInUse)

	_, found, err := dir.ByEmail(ctx, "sara@example.com")
	require.NoError(t, err)
	assert.False(t, found, "failed registration must not leave a directory entry")

	retry := restored(t, dir, kv, WithUnifiedDirectory(true))
	u, err := retry.Register(ctx, "Sara", "sara@example.com", "pw1")
	require.NoError(t, err)
	_, found, err = dir.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRegisterUnifiedRollsBackOnCancelledContext(t *testing.T) {
	dir := newDirectory(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := restored(t, dir, cancelOnSet{Store: kvstore.NewMemoryStore(), cancel: cancel}, WithUnifiedDirectory(true))

	_, err := s.Register(ctx, "Omar", "omar@example.com", "pw1")
	require.ErrorIs(t, err, context.Canceled)

	_, found, err := dir.ByEmail(context.Background(), "omar@example.com")
	require.NoError(t, err)
	assert.False(t, found)
}
