// README: Technician handlers for the job queue, own jobs, accept and progress updates.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"semas/internal/modules/directory"
	"semas/internal/modules/order"
	"semas/internal/types"
)

type TechnicianHandler struct {
	order *order.Service
}

func NewTechnicianHandler(svc *order.Service) *TechnicianHandler {
	return &TechnicianHandler{order: svc}
}

type statusReq struct {
	Status string `json:"status" validate:"required,oneof=en_route in_progress completed cancelled"`
}

func (h *TechnicianHandler) Queue(c *gin.Context) {
	orders, err := h.order.AllPending(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": nonNil(orders)})
}

func (h *TechnicianHandler) Mine(c *gin.Context) {
	orders, err := h.order.ByTechnician(c.Request.Context(), caller(c).ID)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": nonNil(orders)})
}

func (h *TechnicianHandler) Accept(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.order.Accept(c.Request.Context(), order.AcceptCommand{
		OrderID:      types.ID(id),
		TechnicianID: caller(c).ID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// Status advances an accepted job. Technicians may only move their own jobs;
// admins act on any job without taking it over.
func (h *TechnicianHandler) Status(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req statusReq
	if !bindJSON(c, &req) {
		return
	}
	status, _ := order.ParseStatus(req.Status)
	u := caller(c)

	cmd := order.SetStatusCommand{OrderID: types.ID(id), Status: status, ActorID: u.ID}
	if u.Role != directory.RoleAdmin {
		cmd.TechnicianID = u.ID
		if status == order.StatusCancelled {
			// Cancelling skips the assignment check in the service.
			o, err := h.order.Get(c.Request.Context(), cmd.OrderID)
			if err != nil {
				writeOrderError(c, err)
				return
			}
			if o.TechnicianID == nil || *o.TechnicianID != u.ID {
				writeOrderError(c, order.ErrTechnicianMismatch)
				return
			}
		}
	}
	o, err := h.order.SetStatus(c.Request.Context(), cmd)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
