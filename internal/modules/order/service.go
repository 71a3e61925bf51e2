// README: Order service implements state transitions, ratings and the message thread.
package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"semas/internal/types"
)

var (
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrNotFound           = errors.New("order not found")
	ErrConflict           = errors.New("order state conflict")
	ErrBadRequest         = errors.New("bad request")
	ErrTechnicianMismatch = errors.New("order is assigned to another technician")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrAlreadyRated       = errors.New("order already rated")
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type CreateCommand struct {
	CustomerID   types.ID
	CustomerName string
	ServiceType  string
	Date         time.Time
	Address      string
	Description  string
}

type SetStatusCommand struct {
	OrderID      types.ID
	Status       Status
	TechnicianID types.ID
	ActorID      types.ID
}

type AcceptCommand struct {
	OrderID      types.ID
	TechnicianID types.ID
}

type CancelCommand struct {
	OrderID types.ID
	ActorID types.ID
}

type RateCommand struct {
	OrderID types.ID
	Rating  int
}

type MessageCommand struct {
	OrderID  types.ID
	SenderID types.ID
	Text     string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.CustomerID == "" || strings.TrimSpace(cmd.ServiceType) == "" {
		return nil, ErrBadRequest
	}
	now := s.now()
	date := cmd.Date
	if date.IsZero() {
		date = now
	}
	o := &Order{
		ID:           newID(),
		CustomerID:   cmd.CustomerID,
		CustomerName: cmd.CustomerName,
		ServiceType:  strings.TrimSpace(cmd.ServiceType),
		Status:       StatusPending,
		Date:         date,
		Address:      cmd.Address,
		Description:  cmd.Description,
		Messages:     []Message{},
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorID:    &cmd.CustomerID,
		CreatedAt:  now,
	})
	return o, nil
}

// SetStatus moves an order along the transition table. Entering accepted
// assigns cmd.TechnicianID; later steps only verify it against the assignment.
func (s *Service) SetStatus(ctx context.Context, cmd SetStatusCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.Status) {
		return nil, ErrIllegalTransition
	}

	var assign *types.ID
	switch cmd.Status {
	case StatusAccepted:
		if cmd.TechnicianID == "" {
			return nil, ErrBadRequest
		}
		assign = &cmd.TechnicianID
	case StatusCancelled:
	default:
		if o.TechnicianID == nil {
			return nil, ErrIllegalTransition
		}
		if cmd.TechnicianID != "" && cmd.TechnicianID != *o.TechnicianID {
			return nil, ErrTechnicianMismatch
		}
	}

	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.Status, o.StatusVersion, assign)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	actor := cmd.ActorID
	if actor == "" {
		actor = cmd.TechnicianID
	}
	ev := &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   cmd.Status,
		CreatedAt:  s.now(),
	}
	if actor != "" {
		ev.ActorID = &actor
	}
	_ = s.store.AppendEvent(ctx, ev)

	return s.store.Get(ctx, o.ID)
}

// Accept claims a pending order; of several concurrent claims exactly one wins.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Order, error) {
	return s.SetStatus(ctx, SetStatusCommand{
		OrderID:      cmd.OrderID,
		Status:       StatusAccepted,
		TechnicianID: cmd.TechnicianID,
		ActorID:      cmd.TechnicianID,
	})
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	return s.SetStatus(ctx, SetStatusCommand{
		OrderID: cmd.OrderID,
		Status:  StatusCancelled,
		ActorID: cmd.ActorID,
	})
}

// Rate records the customer's rating once the order is completed. A rating is never overwritten.
func (s *Service) Rate(ctx context.Context, cmd RateCommand) (*Order, error) {
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return nil, ErrInvalidRating
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusCompleted {
		return nil, ErrIllegalTransition
	}
	if o.Rating != nil {
		return nil, ErrAlreadyRated
	}
	ok, err := s.store.SetRating(ctx, o.ID, cmd.Rating, o.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, err := s.store.Get(ctx, o.ID)
		if err == nil && cur.Rating != nil {
			return nil, ErrAlreadyRated
		}
		return nil, ErrConflict
	}
	return s.store.Get(ctx, o.ID)
}

// AppendMessage adds to the order's thread. Timestamps never go backwards within one order.
func (s *Service) AppendMessage(ctx context.Context, cmd MessageCommand) (Message, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" || cmd.SenderID == "" {
		return Message{}, ErrBadRequest
	}
	return s.store.AppendMessage(ctx, cmd.OrderID, Message{
		ID:        types.ID(uuid.NewString()),
		SenderID:  cmd.SenderID,
		Text:      text,
		Timestamp: s.now().UnixMilli(),
	})
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ByCustomer(ctx context.Context, customerID types.ID) ([]*Order, error) {
	return s.store.List(ctx, Filter{CustomerID: customerID})
}

func (s *Service) ByTechnician(ctx context.Context, technicianID types.ID) ([]*Order, error) {
	return s.store.List(ctx, Filter{TechnicianID: technicianID})
}

// All lists every order, newest first.
func (s *Service) All(ctx context.Context) ([]*Order, error) {
	return s.store.List(ctx, Filter{})
}

func (s *Service) AllPending(ctx context.Context) ([]*Order, error) {
	return s.store.List(ctx, Filter{Status: StatusPending})
}

// ActiveForCustomer returns the newest order that is neither completed nor cancelled.
func (s *Service) ActiveForCustomer(ctx context.Context, customerID types.ID) (*Order, bool, error) {
	orders, err := s.ByCustomer(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	for _, o := range orders {
		if !o.Status.Terminal() {
			return o, true, nil
		}
	}
	return nil, false, nil
}

func (s *Service) Events(ctx context.Context, id types.ID) ([]Event, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Events(ctx, id)
}

// AverageRating over rated orders of serviceType, DefaultRating when none are rated.
func (s *Service) AverageRating(ctx context.Context, serviceType string) (float64, error) {
	ratings, err := s.store.Ratings(ctx, serviceType)
	if err != nil {
		return 0, err
	}
	if len(ratings) == 0 {
		return DefaultRating, nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), nil
}

func newID() types.ID {
	return types.ID("ord_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}
