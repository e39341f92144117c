package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"puppet-server/internal/auth"
)

func newAdminRouter(cfg auth.TokenConfig) *gin.Engine {
	r := gin.New()
	r.GET("/", RequireAdmin(cfg), func(c *gin.Context) {
		subject, ok := SubjectFromContext(c)
		if !ok || subject != "operator" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAdmin_SetsSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := auth.CreateAdminToken(cfg)
	if err != nil {
		t.Fatalf("CreateAdminToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	newAdminRouter(cfg).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAdmin_Rejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	viewer, err := auth.CreateToken("someone", "viewer", cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	for name, header := range map[string]string{
		"missing":    "",
		"malformed":  "Token abc",
		"garbage":    "Bearer abc",
		"wrong role": "Bearer " + viewer,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		newAdminRouter(cfg).ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
	}
}
