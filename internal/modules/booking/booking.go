// README: Booking flow; quotes the service, settles payment, then creates the order.
package booking

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"semas/internal/modules/directory"
	"semas/internal/modules/order"
	"semas/internal/modules/payment"
	"semas/internal/modules/pricing"
)

var ErrServiceRequired = errors.New("service type required")

type Orders interface {
	Create(ctx context.Context, cmd order.CreateCommand) (*order.Order, error)
}

type Payments interface {
	Process(ctx context.Context, req payment.Request) (payment.Result, error)
}

type Catalog interface {
	Quote(serviceType string) (pricing.Quote, error)
}

// Hints supplies the service picked in the catalog before the booking started.
// The hint is only cleared once an order exists.
type Hints interface {
	SelectedService(ctx context.Context, device string) (string, bool, error)
	ClearSelectedService(ctx context.Context, device string) error
}

type Service struct {
	orders   Orders
	payments Payments
	catalog  Catalog
	hints    Hints
}

func NewService(orders Orders, payments Payments, catalog Catalog, hints Hints) *Service {
	return &Service{orders: orders, payments: payments, catalog: catalog, hints: hints}
}

type BookCommand struct {
	Customer    directory.User
	DeviceID    string
	ServiceType string
	Date        time.Time
	Address     string
	Description string
	Method      payment.Method
	Card        *payment.CardDetails
}

type Booking struct {
	Quote   pricing.Quote  `json:"quote"`
	Payment payment.Result `json:"payment"`
	Order   *order.Order   `json:"order,omitempty"`
}

// Book creates the order only after the payment succeeded. On a declined
// payment the returned Booking carries the payment result and no order.
func (s *Service) Book(ctx context.Context, cmd BookCommand) (Booking, error) {
	serviceType, err := s.resolveService(ctx, cmd)
	if err != nil {
		return Booking{}, err
	}
	quote, err := s.catalog.Quote(serviceType)
	if err != nil {
		return Booking{}, err
	}

	res, err := s.payments.Process(ctx, payment.Request{
		Method: cmd.Method,
		Card:   cmd.Card,
		Amount: quote.Total,
	})
	b := Booking{Quote: quote, Payment: res}
	if err != nil {
		return b, err
	}
	if !res.Success {
		return b, errors.New(res.Error)
	}

	o, err := s.orders.Create(ctx, order.CreateCommand{
		CustomerID:   cmd.Customer.ID,
		CustomerName: cmd.Customer.Name,
		ServiceType:  quote.Title,
		Date:         cmd.Date,
		Address:      cmd.Address,
		Description:  cmd.Description,
	})
	if err != nil {
		log.Printf("booking: payment %s settled but order create failed: %v", res.TransactionID, err)
		return b, err
	}
	b.Order = o
	if s.hints != nil && cmd.DeviceID != "" {
		if err := s.hints.ClearSelectedService(context.WithoutCancel(ctx), cmd.DeviceID); err != nil {
			log.Printf("booking: order %s created but selected service for %s not cleared: %v", o.ID, cmd.DeviceID, err)
		}
	}
	return b, nil
}

func (s *Service) resolveService(ctx context.Context, cmd BookCommand) (string, error) {
	if st := strings.TrimSpace(cmd.ServiceType); st != "" {
		return st, nil
	}
	if s.hints != nil && cmd.DeviceID != "" {
		hint, ok, err := s.hints.SelectedService(ctx, cmd.DeviceID)
		if err != nil {
			return "", err
		}
		if ok {
			return hint, nil
		}
	}
	return "", ErrServiceRequired
}
