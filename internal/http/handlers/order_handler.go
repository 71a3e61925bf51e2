// README: Order handlers for the customer side (create, list, track, rate, chat, cancel).
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"semas/internal/modules/directory"
	"semas/internal/modules/order"
	"semas/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	ServiceType string    `json:"serviceType" validate:"required,max=120"`
	Date        time.Time `json:"date"`
	Address     string    `json:"address" validate:"required,max=255"`
	Description string    `json:"description" validate:"max=2000"`
}

type rateReq struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

type messageReq struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// canView: the parties, admins, and staff browsing the open queue.
func canView(u directory.User, o *order.Order) bool {
	if o.Involves(u.ID) || u.Role == directory.RoleAdmin {
		return true
	}
	return u.IsStaff() && o.Status == order.StatusPending
}

// canAct: the parties to the order and admins.
func canAct(u directory.User, o *order.Order) bool {
	return o.Involves(u.ID) || u.Role == directory.RoleAdmin
}

// load fetches the :id order and applies allow; on failure the response is already written.
func (h *OrderHandler) load(c *gin.Context, allow func(directory.User, *order.Order) bool) (*order.Order, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return nil, false
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return nil, false
	}
	if !allow(caller(c), o) {
		// Hide orders the caller has no part in.
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return nil, false
	}
	return o, true
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if !bindJSON(c, &req) {
		return
	}
	u := caller(c)
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		CustomerID:   u.ID,
		CustomerName: u.Name,
		ServiceType:  req.ServiceType,
		Date:         req.Date,
		Address:      req.Address,
		Description:  req.Description,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

// List returns the caller's orders: placed by a customer, assigned to staff.
func (h *OrderHandler) List(c *gin.Context) {
	u := caller(c)
	var (
		orders []*order.Order
		err    error
	)
	switch u.Role {
	case directory.RoleAdmin:
		orders, err = h.order.All(c.Request.Context())
	case directory.RoleTechnician:
		orders, err = h.order.ByTechnician(c.Request.Context(), u.ID)
	default:
		orders, err = h.order.ByCustomer(c.Request.Context(), u.ID)
	}
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": nonNil(orders)})
}

func (h *OrderHandler) Active(c *gin.Context) {
	o, ok, err := h.order.ActiveForCustomer(c.Request.Context(), caller(c).ID)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "no active order")
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, ok := h.load(c, canView)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Events(c *gin.Context) {
	o, ok := h.load(c, canView)
	if !ok {
		return
	}
	events, err := h.order.Events(c.Request.Context(), o.ID)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if events == nil {
		events = []order.Event{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"events": events})
}

func (h *OrderHandler) Rate(c *gin.Context) {
	o, ok := h.load(c, func(u directory.User, o *order.Order) bool { return o.CustomerID == u.ID })
	if !ok {
		return
	}
	var req rateReq
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.order.Rate(c.Request.Context(), order.RateCommand{OrderID: o.ID, Rating: req.Rating})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, updated)
}

func (h *OrderHandler) Messages(c *gin.Context) {
	o, ok := h.load(c, canAct)
	if !ok {
		return
	}
	msgs := o.Messages
	if msgs == nil {
		msgs = []order.Message{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *OrderHandler) PostMessage(c *gin.Context) {
	o, ok := h.load(c, canAct)
	if !ok {
		return
	}
	var req messageReq
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.order.AppendMessage(c.Request.Context(), order.MessageCommand{
		OrderID:  o.ID,
		SenderID: caller(c).ID,
		Text:     req.Text,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, m)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	o, ok := h.load(c, canAct)
	if !ok {
		return
	}
	updated, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{OrderID: o.ID, ActorID: caller(c).ID})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, updated)
}

func nonNil(orders []*order.Order) []*order.Order {
	if orders == nil {
		return []*order.Order{}
	}
	return orders
}
