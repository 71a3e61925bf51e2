// README: Order aggregate, message thread and status definitions.
package order

import (
	"time"

	"semas/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusEnRoute    Status = "en_route"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	switch st {
	case StatusPending, StatusAccepted, StatusEnRoute, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal statuses have no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DefaultRating is reported for services nobody has rated yet.
const DefaultRating = 4.9

type Order struct {
	ID            types.ID  `json:"id"`
	CustomerID    types.ID  `json:"customerId"`
	CustomerName  string    `json:"customerName"`
	ServiceType   string    `json:"serviceType"`
	Status        Status    `json:"status"`
	StatusVersion int       `json:"statusVersion"`
	Date          time.Time `json:"date"`
	Address       string    `json:"address"`
	Description   string    `json:"description"`
	TechnicianID  *types.ID `json:"technicianId,omitempty"`
	Rating        *int      `json:"rating,omitempty"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Involves reports whether id is the order's customer or its assigned technician.
func (o *Order) Involves(id types.ID) bool {
	if o.CustomerID == id {
		return true
	}
	return o.TechnicianID != nil && *o.TechnicianID == id
}

func (o *Order) clone() *Order {
	cp := *o
	if o.TechnicianID != nil {
		t := *o.TechnicianID
		cp.TechnicianID = &t
	}
	if o.Rating != nil {
		r := *o.Rating
		cp.Rating = &r
	}
	cp.Messages = append([]Message(nil), o.Messages...)
	if cp.Messages == nil {
		cp.Messages = []Message{}
	}
	return &cp
}

type Message struct {
	ID        types.ID `json:"id"`
	SenderID  types.ID `json:"senderId"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"` // unix ms
}

type Event struct {
	ID         int64     `json:"id"`
	OrderID    types.ID  `json:"orderId"`
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	ActorID    *types.ID `json:"actorId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AllowedTransitions represents the order state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusEnRoute, StatusCancelled},
	StatusEnRoute:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Filter narrows List; zero fields match everything.
type Filter struct {
	CustomerID   types.ID
	TechnicianID types.ID
	Status       Status
}

func (f Filter) match(o *Order) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.TechnicianID != "" && (o.TechnicianID == nil || *o.TechnicianID != f.TechnicianID) {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}
