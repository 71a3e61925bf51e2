package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semas/internal/kvstore"
	"semas/internal/modules/directory"
	"semas/internal/modules/order"
	"semas/internal/modules/payment"
	"semas/internal/modules/prefs"
	"semas/internal/modules/pricing"
)

var jane = directory.User{ID: "1", Name: "Jane Doe", Email: "jane@example.com", Role: directory.RoleCustomer}

type fixture struct {
	svc    *Service
	orders *order.Service
	prefs  *prefs.Service
}

func newFixture(t *testing.T, payments Payments) fixture {
	t.Helper()
	catalog, err := pricing.NewSeededStore()
	require.NoError(t, err)
	orders := order.NewService(order.NewMemoryStore())
	p := prefs.NewService(kvstore.NewMemoryStore())
	return fixture{
		svc:    NewService(orders, payments, pricing.NewService(catalog), p),
		orders: orders,
		prefs:  p,
	}
}

// cancelledPayments behaves like a request abandoned mid-flight.
type cancelledPayments struct{}

func (cancelledPayments) Process(ctx context.Context, _ payment.Request) (payment.Result, error) {
	return payment.Result{}, context.Canceled
}

func TestBookCashOnDelivery(t *testing.T) {
	f := newFixture(t, payment.NewService())
	ctx := context.Background()

	b, err := f.svc.Book(ctx, BookCommand{
		Customer:    jane,
		ServiceType: "termite",
		Address:     "1 Palm St",
		Method:      payment.MethodCashOnDelivery,
	})
	require.NoError(t, err)
	require.NotNil(t, b.Order)
	assert.True(t, b.Payment.Success)
	assert.Contains(t, b.Payment.TransactionID, "COD-")
	assert.Equal(t, int64(29900), b.Quote.Total.Amount)
	assert.Equal(t, "Termite Defense", b.Order.ServiceType)
	assert.Equal(t, order.StatusPending, b.Order.Status)
	assert.Equal(t, jane.ID, b.Order.CustomerID)
}

func TestDeclinedPaymentCreatesNoOrder(t *testing.T) {
	f := newFixture(t, payment.NewService())
	ctx := context.Background()

	b, err := f.svc.Book(ctx, BookCommand{
		Customer:    jane,
		ServiceType: "general",
		Method:      payment.MethodCard,
		Card:        &payment.CardDetails{Number: "123", CVV: "1", Expiry: "13/99"},
	})
	assert.ErrorIs(t, err, payment.ErrInvalidCardDetails)
	assert.Nil(t, b.Order)
	assert.False(t, b.Payment.Success)

	mine, err := f.orders.ByCustomer(ctx, jane.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCancelledPaymentCreatesNoOrder(t *testing.T) {
	f := newFixture(t, cancelledPayments{})
	_, err := f.svc.Book(context.Background(), BookCommand{
		Customer:    jane,
		ServiceType: "general",
		Method:      payment.MethodApplePay,
	})
	assert.True(t, errors.Is(err, context.Canceled))

	mine, err := f.orders.ByCustomer(context.Background(), jane.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestBookUsesSelectedServiceHint(t *testing.T) {
	f := newFixture(t, payment.NewService())
	ctx := context.Background()
	require.NoError(t, f.prefs.SetSelectedService(ctx, "dev-1", "Mosquito Shield"))

	b, err := f.svc.Book(ctx, BookCommand{Customer: jane, DeviceID: "dev-1", Method: payment.MethodApplePay})
	require.NoError(t, err)
	assert.Equal(t, "mosquito", b.Quote.ServiceID)

	// the hint is gone after one booking
	_, err = f.svc.Book(ctx, BookCommand{Customer: jane, DeviceID: "dev-1", Method: payment.MethodApplePay})
	assert.ErrorIs(t, err, ErrServiceRequired)
}

func TestBookUnknownService(t *testing.T) {
	f := newFixture(t, payment.NewService())
	_, err := f.svc.Book(context.Background(), BookCommand{Customer: jane, ServiceType: "Bed Bugs", Method: payment.MethodCashOnDelivery})
	assert.ErrorIs(t, err, pricing.ErrUnknownService)
}

func TestDeclinedPaymentKeepsSelectedService(t *testing.T) {
	f := newFixture(t, payment.NewService())
	ctx := context.Background()
	require.NoError(t, f.prefs.SetSelectedService(ctx, "dev-1", "Mosquito Shield"))

	_, err := f.svc.Book(ctx, BookCommand{
		Customer: jane,
		DeviceID: "dev-1",
		Method:   payment.MethodCard,
		Card:     &payment.CardDetails{Number: "123", CVV: "1", Expiry: "13/99"},
	})
	require.ErrorIs(t, err, payment.ErrInvalidCardDetails)

	// retry relying on the hint alone
	b, err := f.svc.Book(ctx, BookCommand{Customer: jane, DeviceID: "dev-1", Method: payment.MethodCashOnDelivery})
	require.NoError(t, err)
	assert.Equal(t, "mosquito", b.Quote.ServiceID)

	_, ok, err := f.prefs.SelectedService(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCancelledPaymentKeepsSelectedService(t *testing.T) {
	f := newFixture(t, cancelledPayments{})
	ctx := context.Background()
	require.NoError(t, f.prefs.SetSelectedService(ctx, "dev-1", "Rodent Exclusion"))

	_, err := f.svc.Book(ctx, BookCommand{Customer: jane, DeviceID: "dev-1", Method: payment.MethodApplePay})
	require.ErrorIs(t, err, context.Canceled)

	hint, ok, err := f.prefs.SelectedService(ctx, "dev-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Rodent Exclusion", hint)
}

func TestExplicitServiceClearsPendingHint(t *testing.T) {
	f := newFixture(t, payment.NewService())
	ctx := context.Background()
	require.NoError(t, f.prefs.SetSelectedService(ctx, "dev-1", "Mosquito Shield"))

	b, err := f.svc.Book(ctx, BookCommand{Customer: jane, DeviceID: "dev-1", ServiceType: "termite", Method: payment.MethodApplePay})
	require.NoError(t, err)
	assert.Equal(t, "termite", b.Quote.ServiceID)

	_, err = f.svc.Book(ctx, BookCommand{Customer: jane, DeviceID: "dev-1", Method: payment.MethodApplePay})
	assert.ErrorIs(t, err, ErrServiceRequired)
}
