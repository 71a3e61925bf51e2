// README: Per-device preference handlers keyed by the X-Device-ID header.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"semas/internal/modules/prefs"
)

type PrefsHandler struct {
	prefs *prefs.Service
}

func NewPrefsHandler(svc *prefs.Service) *PrefsHandler {
	return &PrefsHandler{prefs: svc}
}

type prefsReq struct {
	Language       *prefs.Language `json:"language" validate:"omitempty,oneof=en ar"`
	Theme          *prefs.Theme    `json:"theme" validate:"omitempty,oneof=light dark system"`
	OnboardingSeen *bool           `json:"onboardingSeen"`
}

type selectedServiceReq struct {
	ServiceType string `json:"serviceType" validate:"max=120"`
}

type prefsView struct {
	prefs.Prefs
	Direction string `json:"direction"`
}

func device(c *gin.Context) (string, bool) {
	d := c.GetHeader(DeviceHeader)
	if !isValidID(d) {
		writeError(c, http.StatusBadRequest, "missing or invalid "+DeviceHeader+" header")
		return "", false
	}
	return d, true
}

func (h *PrefsHandler) Get(c *gin.Context) {
	dev, ok := device(c)
	if !ok {
		return
	}
	p, err := h.prefs.Get(c.Request.Context(), dev)
	if err != nil {
		writePrefsError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, prefsView{Prefs: p, Direction: p.Language.Direction()})
}

func (h *PrefsHandler) Update(c *gin.Context) {
	dev, ok := device(c)
	if !ok {
		return
	}
	var req prefsReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.prefs.Update(c.Request.Context(), dev, prefs.Update{
		Language:       req.Language,
		Theme:          req.Theme,
		OnboardingSeen: req.OnboardingSeen,
	})
	if err != nil {
		writePrefsError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, prefsView{Prefs: p, Direction: p.Language.Direction()})
}

func (h *PrefsHandler) SetSelectedService(c *gin.Context) {
	dev, ok := device(c)
	if !ok {
		return
	}
	var req selectedServiceReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.prefs.SetSelectedService(c.Request.Context(), dev, req.ServiceType); err != nil {
		writePrefsError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PrefsHandler) ConsumeSelectedService(c *gin.Context) {
	dev, ok := device(c)
	if !ok {
		return
	}
	st, found, err := h.prefs.ConsumeSelectedService(c.Request.Context(), dev)
	if err != nil {
		writePrefsError(c, err)
		return
	}
	if !found {
		writeJSON(c, http.StatusOK, map[string]any{"serviceType": nil})
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"serviceType": st})
}

func writePrefsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, prefs.ErrInvalidLanguage), errors.Is(err, prefs.ErrInvalidTheme), errors.Is(err, prefs.ErrNoDevice):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeInternal(c, err)
	}
}
