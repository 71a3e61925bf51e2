// README: Catalog store; immutable list of offerings loaded from seed data.
package pricing

import (
	"semas/internal/seed"
	"semas/internal/types"
)

type Store struct {
	offerings []Offering
}

func NewStore(offerings ...Offering) *Store {
	return &Store{offerings: append([]Offering(nil), offerings...)}
}

// NewSeededStore returns the catalog shipped with the binary.
func NewSeededStore() (*Store, error) {
	data, err := seed.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Offering, 0, len(data.Services))
	for _, s := range data.Services {
		out = append(out, Offering{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Price:       types.Money{Amount: s.Price, Currency: data.Currency},
			Features:    append([]string(nil), s.Features...),
		})
	}
	return NewStore(out...), nil
}

func (s *Store) All() []Offering {
	out := make([]Offering, len(s.offerings))
	for i, o := range s.offerings {
		o.Features = append([]string(nil), o.Features...)
		out[i] = o
	}
	return out
}
