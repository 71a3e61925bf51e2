// README: Common value objects shared across modules (identifiers, money).
package types

import "fmt"

// ID is an opaque identifier for users, orders and messages.
type ID string

// Money is an amount in minor units (halalas, cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}
