// README: Base handler utilities (JSON helpers, request binding, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"semas/internal/http/middleware"
	"semas/internal/modules/booking"
	"semas/internal/modules/directory"
	"semas/internal/modules/order"
	"semas/internal/modules/payment"
	"semas/internal/modules/prefs"
	"semas/internal/modules/pricing"
	"semas/internal/modules/session"
	"semas/internal/validation"
)

// DeviceHeader identifies the client installation preferences belong to.
const DeviceHeader = "X-Device-ID"

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// isValidID accepts the id shapes we generate (ord_<hex>, uuids, seeded short ids).
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// bindJSON decodes and validates the body into dst; on failure the response is already written.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	fields, err := validation.Validate(dst)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return false
	}
	if len(fields) > 0 {
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return false
	}
	return true
}

// caller returns the authenticated identity; routes using it sit behind RequireSession.
func caller(c *gin.Context) directory.User {
	u, _ := middleware.CallerUser(c)
	return u
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, order.ErrInvalidRating):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrTechnicianMismatch):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrIllegalTransition), errors.Is(err, order.ErrConflict), errors.Is(err, order.ErrAlreadyRated):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrNoSession):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrWeakPassword), errors.Is(err, session.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrEmailInUse):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrClosed):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrServiceRequired), errors.Is(err, pricing.ErrUnknownService):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrInvalidCardDetails), errors.Is(err, payment.ErrInvalidPaymentMethod):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, prefs.ErrNoDevice):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeOrderError(c, err)
	}
}

func writeInternal(c *gin.Context, err error) {
	if c.Request.Context().Err() != nil {
		// client went away; nothing useful to send
		c.Status(499)
		return
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	writeError(c, http.StatusInternalServerError, "internal error")
}
