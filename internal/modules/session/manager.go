// README: Session manager; one Store per client, addressed by an opaque session id.
package session

import (
	"context"

	"github.com/google/uuid"

	"semas/internal/kvstore"
	"semas/internal/modules/directory"
)

type Manager struct {
	dir  directory.Directory
	kv   kvstore.Store
	opts []Option
}

func NewManager(dir directory.Directory, kv kvstore.Store, opts ...Option) *Manager {
	return &Manager{dir: dir, kv: kv, opts: opts}
}

// Key is the storage key holding the snapshot for sid.
func Key(sid string) string {
	return "session:" + sid
}

// New allocates a fresh session id and returns its restored (anonymous) store.
func (m *Manager) New(ctx context.Context) (string, *Store, error) {
	sid := uuid.NewString()
	s, err := m.Open(ctx, sid)
	if err != nil {
		return "", nil, err
	}
	return sid, s, nil
}

// Open restores the session persisted under sid.
func (m *Manager) Open(ctx context.Context, sid string) (*Store, error) {
	s := NewStore(m.dir, m.kv, Key(sid), m.opts...)
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
