// README: Session handlers for register/login/logout, the caller profile and view navigation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"semas/internal/http/middleware"
	"semas/internal/modules/access"
	"semas/internal/modules/directory"
	"semas/internal/modules/session"
	"semas/internal/types"
)

type AuthHandler struct {
	sessions *session.Manager
	tokens   *middleware.Tokens
}

func NewAuthHandler(sessions *session.Manager, tokens *middleware.Tokens) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens}
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Password length is checked by the session after the lookup, so unknown
// emails always report invalid credentials.
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password"`
}

type updateMeReq struct {
	Name  *string `json:"name" validate:"omitempty,max=80"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  directory.User `json:"user"`
}

// open reuses the session named by a valid bearer token, otherwise allocates one.
func (h *AuthHandler) open(c *gin.Context) (string, *session.Store, bool) {
	if sid, s, ok := middleware.CallerSession(c); ok {
		return sid, s, true
	}
	sid, s, err := h.sessions.New(c.Request.Context())
	if err != nil {
		writeSessionError(c, err)
		return "", nil, false
	}
	return sid, s, true
}

func (h *AuthHandler) respond(c *gin.Context, status int, sid string, u directory.User) {
	token, err := h.tokens.Issue(sid, u)
	if err != nil {
		writeInternal(c, err)
		return
	}
	writeJSON(c, status, authResponse{Token: token, User: u})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if !bindJSON(c, &req) {
		return
	}
	sid, s, ok := h.open(c)
	if !ok {
		return
	}
	u, err := s.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, sid, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if !bindJSON(c, &req) {
		return
	}
	sid, s, ok := h.open(c)
	if !ok {
		return
	}
	u, err := s.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	h.respond(c, http.StatusOK, sid, u)
}

// Logout is idempotent: callers without a session get 204 as well.
func (h *AuthHandler) Logout(c *gin.Context) {
	_, s, ok := middleware.CallerSession(c)
	if ok {
		if err := s.Logout(c.Request.Context()); err != nil {
			writeSessionError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	writeJSON(c, http.StatusOK, caller(c))
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req updateMeReq
	if !bindJSON(c, &req) {
		return
	}
	_, s, _ := middleware.CallerSession(c)
	u, err := s.UpdateIdentity(c.Request.Context(), session.Patch{Name: req.Name, Phone: req.Phone})
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

// User resolves a counterpart (technician or customer) by id.
func (h *AuthHandler) User(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	_, s, _ := middleware.CallerSession(c)
	u, ok, err := s.ResolveByID(c.Request.Context(), types.ID(id))
	if err != nil {
		writeInternal(c, err)
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(c, http.StatusOK, u)
}

// Navigate reports what the access guard decides for the requested view.
func (h *AuthHandler) Navigate(c *gin.Context) {
	view, ok := access.ParseView(c.Param("view"))
	if !ok {
		writeError(c, http.StatusNotFound, "unknown view")
		return
	}
	state := session.StateAnonymous
	var user *directory.User
	if _, s, ok := middleware.CallerSession(c); ok {
		state = s.State()
		if u, ok := s.Current(); ok {
			user = &u
		}
	}
	writeJSON(c, http.StatusOK, access.Decide(state, user, view))
}
