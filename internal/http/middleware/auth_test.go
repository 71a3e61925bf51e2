// README: Tests for session middleware and role gating.
package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"semas/internal/http/middleware"
	"semas/internal/kvstore"
	"semas/internal/modules/directory"
	"semas/internal/modules/session"
)

type fixture struct {
	router   *gin.Engine
	tokens   *middleware.Tokens
	sessions *session.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir, err := directory.NewSeededDirectory()
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	tokens := middleware.NewTokens("test-secret", time.Hour)
	sessions := session.NewManager(dir, kvstore.NewMemoryStore())

	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Auth(tokens, sessions))
	r.GET("/open", func(c *gin.Context) {
		u, ok := middleware.CallerUser(c)
		c.JSON(http.StatusOK, gin.H{"signedIn": ok, "id": u.ID})
	})
	r.GET("/me", middleware.RequireSession(), func(c *gin.Context) {
		u, _ := middleware.CallerUser(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "role": u.Role})
	})
	r.GET("/jobs", middleware.RequireSession(), middleware.RequireRole(directory.RoleTechnician, directory.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return fixture{router: r, tokens: tokens, sessions: sessions}
}

// login signs email in on a fresh session and returns a bearer header.
func (f fixture) login(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	sid, s, err := f.sessions.New(ctx)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	u, err := s.Login(ctx, email, "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	tok, err := f.tokens.Issue(sid, u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + tok
}

func (f fixture) get(path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRequireSession_MissingHeader(t *testing.T) {
	f := newFixture(t)
	w := f.get("/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"redirect":"/auth"`) {
		t.Errorf("expected login redirect in body, got %s", w.Body.String())
	}
}

func TestRequireSession_BadTokens(t *testing.T) {
	f := newFixture(t)
	other := middleware.NewTokens("other-secret", time.Hour)
	forged, err := other.Issue("sid", directory.User{ID: "3", Role: directory.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for _, h := range []string{"Token abc", "Bearer not-a-jwt", "Bearer " + forged} {
		if w := f.get("/me", h); w.Code != http.StatusUnauthorized {
			t.Errorf("%q: expected 401, got %d", h, w.Code)
		}
	}
}

func TestRequireSession_ValidToken(t *testing.T) {
	f := newFixture(t)
	w := f.get("/me", f.login(t, "jane@example.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"role":"customer"`) {
		t.Errorf("expected customer role, got %s", w.Body.String())
	}
}

func TestRequireSession_AfterLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid, s, err := f.sessions.New(ctx)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	u, err := s.Login(ctx, "jane@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	tok, _ := f.tokens.Issue(sid, u)
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if w := f.get("/me", "Bearer "+tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		email string
		want  int
	}{
		{"jane@example.com", http.StatusForbidden},
		{"mike@semas.com", http.StatusNoContent},
		{"admin@semas.com", http.StatusNoContent},
	}
	for _, tc := range cases {
		if w := f.get("/jobs", f.login(t, tc.email)); w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.email, tc.want, w.Code)
		}
	}
}

func TestAuth_AnonymousPassesThrough(t *testing.T) {
	f := newFixture(t)
	w := f.get("/open", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"signedIn":false`) {
		t.Fatalf("expected anonymous 200, got %d %s", w.Code, w.Body.String())
	}
}

func TestTokens_Expired(t *testing.T) {
	tokens := middleware.NewTokens("s", -time.Minute)
	tok, err := tokens.Issue("sid", directory.User{ID: "1", Role: directory.RoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Parse(tok); err != middleware.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRecovery(t *testing.T) {
	f := newFixture(t)
	w := f.get("/panic", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
