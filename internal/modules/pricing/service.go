// README: Pricing service resolves a service type to its catalog price.
package pricing

import (
	"errors"
	"strings"
)

var ErrUnknownService = errors.New("unknown service")

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Services() []Offering {
	return s.store.All()
}

// Find matches serviceType against the catalog id, then the title, then a title
// prefix ("Termite" finds "Termite Defense"). Matching ignores case.
func (s *Service) Find(serviceType string) (Offering, error) {
	key := strings.ToLower(strings.TrimSpace(serviceType))
	if key == "" {
		return Offering{}, ErrUnknownService
	}
	all := s.store.All()
	for _, o := range all {
		if strings.ToLower(o.ID) == key || strings.ToLower(o.Title) == key {
			return o, nil
		}
	}
	first := strings.Fields(key)[0]
	for _, o := range all {
		if strings.HasPrefix(strings.ToLower(o.Title), first) {
			return o, nil
		}
	}
	return Offering{}, ErrUnknownService
}

func (s *Service) Quote(serviceType string) (Quote, error) {
	o, err := s.Find(serviceType)
	if err != nil {
		return Quote{}, err
	}
	return Quote{ServiceID: o.ID, Title: o.Title, Total: o.Price}, nil
}
