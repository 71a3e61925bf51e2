// README: Booking handler; quote, pay and create the order in one request.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"semas/internal/modules/booking"
	"semas/internal/modules/payment"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: svc}
}

// serviceType may be omitted when the device has a pending catalog selection.
type bookingReq struct {
	ServiceType string               `json:"serviceType" validate:"max=120"`
	Date        time.Time            `json:"date"`
	Address     string               `json:"address" validate:"required,max=255"`
	Description string               `json:"description" validate:"max=2000"`
	Method      payment.Method       `json:"paymentMethod" validate:"required"`
	Card        *payment.CardDetails `json:"cardDetails" validate:"-"`
}

func (h *BookingHandler) Book(c *gin.Context) {
	var req bookingReq
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.booking.Book(c.Request.Context(), booking.BookCommand{
		Customer:    caller(c),
		DeviceID:    c.GetHeader(DeviceHeader),
		ServiceType: req.ServiceType,
		Date:        req.Date,
		Address:     req.Address,
		Description: req.Description,
		Method:      req.Method,
		Card:        req.Card,
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidCardDetails) || errors.Is(err, payment.ErrInvalidPaymentMethod) {
			writeJSON(c, http.StatusPaymentRequired, b)
			return
		}
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}
