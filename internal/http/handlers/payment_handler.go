// README: Standalone payment handler; settles a payment without creating an order.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"semas/internal/modules/payment"
	"semas/internal/types"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: svc}
}

// Card details are not validated at binding time; bad cards are a declined payment.
type paymentReq struct {
	Method payment.Method       `json:"method" validate:"required"`
	Card   *payment.CardDetails `json:"cardDetails" validate:"-"`
	Amount types.Money          `json:"amount"`
}

func (h *PaymentHandler) Process(c *gin.Context) {
	var req paymentReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.payments.Process(c.Request.Context(), payment.Request{
		Method: req.Method,
		Card:   req.Card,
		Amount: req.Amount,
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidCardDetails) || errors.Is(err, payment.ErrInvalidPaymentMethod) {
			writeJSON(c, http.StatusPaymentRequired, res)
			return
		}
		writeInternal(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
