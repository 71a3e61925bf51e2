// README: Service catalog handlers (offerings with their running average rating).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"semas/internal/modules/order"
	"semas/internal/modules/pricing"
)

type CatalogHandler struct {
	pricing *pricing.Service
	orders  *order.Service
}

func NewCatalogHandler(pricingSvc *pricing.Service, orderSvc *order.Service) *CatalogHandler {
	return &CatalogHandler{pricing: pricingSvc, orders: orderSvc}
}

type offeringView struct {
	pricing.Offering
	Rating float64 `json:"rating"`
}

func (h *CatalogHandler) List(c *gin.Context) {
	all := h.pricing.Services()
	out := make([]offeringView, 0, len(all))
	for _, o := range all {
		avg, err := h.orders.AverageRating(c.Request.Context(), o.Title)
		if err != nil {
			writeInternal(c, err)
			return
		}
		out = append(out, offeringView{Offering: o, Rating: avg})
	}
	writeJSON(c, http.StatusOK, map[string]any{"services": out})
}
