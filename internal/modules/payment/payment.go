// README: Payment adapter; settles a payment request by method without touching orders.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"semas/internal/types"
	"semas/internal/validation"
)

type Method string

const (
	MethodCard           Method = "card"
	MethodApplePay       Method = "apple_pay"
	MethodCashOnDelivery Method = "cash_on_delivery"
)

var (
	ErrInvalidCardDetails   = errors.New("invalid card details")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

type CardDetails struct {
	Number string `json:"cardNumber" validate:"required,cardnumber"`
	Holder string `json:"cardHolder"`
	Expiry string `json:"expiryDate" validate:"required,expiry"`
	CVV    string `json:"cvv" validate:"required,cvv"`
	Type   string `json:"cardType,omitempty"`
}

type Request struct {
	Method Method       `json:"method"`
	Card   *CardDetails `json:"cardDetails,omitempty"`
	Amount types.Money  `json:"amount"`
}

type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Error         string `json:"error,omitempty"`
}

type Service struct {
	now func() time.Time
	// wait runs before settlement; nil in production.
	wait func(ctx context.Context) error
}

func NewService() *Service {
	return &Service{now: time.Now}
}

// Process settles req. A declined payment returns Success=false together with
// ErrInvalidCardDetails or ErrInvalidPaymentMethod; a cancelled ctx returns ctx.Err().
func (s *Service) Process(ctx context.Context, req Request) (Result, error) {
	if s.wait != nil {
		if err := s.wait(ctx); err != nil {
			return Result{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch {
	case req.Method == MethodCashOnDelivery:
		return s.approve("COD"), nil
	case req.Method == MethodApplePay:
		return s.approve("APPLE"), nil
	case req.Method == MethodCard && req.Card != nil:
		if !ValidCard(*req.Card) {
			return decline(ErrInvalidCardDetails)
		}
		return s.approve("CARD"), nil
	}
	return decline(ErrInvalidPaymentMethod)
}

// ValidCard applies the local card checks; spaces in the number are ignored.
func ValidCard(card CardDetails) bool {
	card.Number = validation.NormalizeCardNumber(card.Number)
	errs, err := validation.Validate(card)
	return err == nil && len(errs) == 0
}

func (s *Service) approve(prefix string) Result {
	return Result{Success: true, TransactionID: fmt.Sprintf("%s-%d", prefix, s.now().UnixMilli())}
}

func decline(err error) (Result, error) {
	return Result{Success: false, Error: err.Error()}, err
}
