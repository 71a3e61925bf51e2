// README: In-memory order store; each write swaps in a fresh copy of the order.
package order

import (
	"context"
	"sync"

	"semas/internal/types"
)

type MemoryStore struct {
	mu     sync.RWMutex
	orders map[types.ID]*Order
	// newest first
	ids    []types.ID
	events map[types.ID][]Event
	nextEv int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[types.ID]*Order),
		events: make(map[types.ID][]Event),
	}
}

func (s *MemoryStore) Create(ctx context.Context, o *Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return ErrConflict
	}
	s.orders[o.ID] = o.clone()
	s.ids = append([]types.ID{o.ID}, s.ids...)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Order{}
	for _, id := range s.ids {
		if o := s.orders[id]; f.match(o) {
			out = append(out, o.clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, technicianID *types.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[id]
	if !ok || cur.Status != from || cur.StatusVersion != version {
		return false, nil
	}
	next := cur.clone()
	next.Status = to
	next.StatusVersion++
	if technicianID != nil {
		t := *technicianID
		next.TechnicianID = &t
	}
	s.orders[id] = next
	return true, nil
}

func (s *MemoryStore) SetRating(ctx context.Context, id types.ID, rating, version int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[id]
	if !ok || cur.Status != StatusCompleted || cur.Rating != nil || cur.StatusVersion != version {
		return false, nil
	}
	next := cur.clone()
	next.Rating = &rating
	next.StatusVersion++
	s.orders[id] = next
	return true, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, id types.ID, m Message) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[id]
	if !ok {
		return Message{}, ErrNotFound
	}
	if n := len(cur.Messages); n > 0 && m.Timestamp <= cur.Messages[n-1].Timestamp {
		m.Timestamp = cur.Messages[n-1].Timestamp + 1
	}
	next := cur.clone()
	next.Messages = append(next.Messages, m)
	s.orders[id] = next
	return m, nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, e *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEv++
	e.ID = s.nextEv
	s.events[e.OrderID] = append(s.events[e.OrderID], *e)
	return nil
}

func (s *MemoryStore) Events(ctx context.Context, id types.ID) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[id]...), nil
}

func (s *MemoryStore) Ratings(ctx context.Context, serviceType string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for _, o := range s.orders {
		if o.ServiceType == serviceType && o.Rating != nil {
			out = append(out, *o.Rating)
		}
	}
	return out, nil
}
