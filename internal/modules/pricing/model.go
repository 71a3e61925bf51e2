// README: Catalog entries for each bookable service and the quote handed to checkout.
package pricing

import "semas/internal/types"

type Offering struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       types.Money `json:"price"`
	Features    []string    `json:"features"`
}

type Quote struct {
	ServiceID string      `json:"serviceId"`
	Title     string      `json:"title"`
	Total     types.Money `json:"total"`
}
