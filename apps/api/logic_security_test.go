package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestCORSMiddleware_AllowsConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := &App{cfg: &Config{Env: "development", PublicBaseURL: "https://admin.gemitra.id"}}

	router := gin.New()
	router.Use(app.corsMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []string{
		"https://admin.gemitra.id",
		devCORSOriginLocalhost,
		devCORSOriginLoopback,
	}

	for _, origin := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", origin)
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("expected allow origin %q, got %q", origin, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Fatalf("expected credentials header true, got %q", got)
		}
	}
}

func TestCORSMiddleware_BlocksUnlistedOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := &App{cfg: &Config{Env: "production", PublicBaseURL: "https://admin.gemitra.id"}}

	router := gin.New()
	router.Use(app.corsMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, origin := range []string{"https://evil.example", devCORSOriginLocalhost} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", origin)
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("expected no allow-origin header for %q, got %q", origin, got)
		}
	}
}

func TestCORSMiddleware_AnswersPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := &App{cfg: &Config{Env: "development"}}

	router := gin.New()
	router.Use(app.corsMiddleware())
	router.PUT("/ping", func(c *gin.Context) {
		t.Fatal("preflight must not reach the handler")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", devCORSOriginLocalhost)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequestIDMiddleware_KeepsOrGeneratesID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := &App{cfg: &Config{}, log: newTestLogger()}

	router := gin.New()
	router.Use(app.requestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("requestID"))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "abc-123" || rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected incoming request id to be kept, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if len(rec.Body.String()) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Body.String())
	}
}

func TestAdminSessionTokenRoundTrip(t *testing.T) {
	app := &App{cfg: &Config{AppSigningSecret: testSigningSecret}}

	token, err := app.createAdminSessionToken(AdminSession{ID: 42, Email: "admin@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	session, err := app.verifyAdminSessionToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if session.ID != 42 || session.Email != "admin@example.com" || session.Role != "admin" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestVerifyAdminSessionToken_RejectsForeignSecret(t *testing.T) {
	app := &App{cfg: &Config{AppSigningSecret: testSigningSecret}}
	other := &App{cfg: &Config{AppSigningSecret: "fedcba9876543210"}}

	token, err := other.createAdminSessionToken(AdminSession{ID: 1, Email: "admin@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := app.verifyAdminSessionToken(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestVerifyAdminSessionToken_RejectsExpiredToken(t *testing.T) {
	app := &App{cfg: &Config{AppSigningSecret: testSigningSecret}}
	claims := jwt.MapClaims{
		"id":    1,
		"email": "admin@example.com",
		"role":  "admin",
		"exp":   time.Now().Add(-time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := app.verifyAdminSessionToken(signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestVerifyAdminSessionToken_InvalidClaimsRejected(t *testing.T) {
	app := &App{cfg: &Config{AppSigningSecret: testSigningSecret}}

	tests := []jwt.MapClaims{
		{"id": "abc", "email": "admin@example.com", "role": "admin"},
		{"id": 1.5, "email": "admin@example.com", "role": "admin"},
		{"id": 1, "email": "admin@example.com", "role": "owner"},
		{"id": 1, "email": "", "role": "admin"},
	}
	for _, claims := range tests {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningSecret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		if _, err := app.verifyAdminSessionToken(signed); err == nil {
			t.Fatalf("expected claims %v to be rejected", claims)
		}
	}
}

func TestSessionTokenFromRequest_PrefersBearerHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Bearer header-token")
	c.Request.AddCookie(&http.Cookie{Name: adminCookieName, Value: "cookie-token"})

	token, ok := sessionTokenFromRequest(c)
	if !ok || token != "header-token" {
		t.Fatalf("expected bearer token, got %q", token)
	}

	c.Request.Header.Set("Authorization", "Basic abc")
	token, ok = sessionTokenFromRequest(c)
	if !ok || token != "cookie-token" {
		t.Fatalf("expected cookie fallback, got %q", token)
	}
}

func TestRequireRole_ForbidsOtherRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := &App{cfg: &Config{AppSigningSecret: testSigningSecret}}

	router := gin.New()
	router.Use(app.requireAdminSession())
	router.GET("/admin-only", app.requireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	staff := authenticatedRequestWithSession(t, app, http.MethodGet, "/admin-only", "", AdminSession{ID: 2, Email: "staff@example.com", Role: "staff"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staff)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(t, app, http.MethodGet, "/admin-only", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}
