package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runAuth(t *testing.T, header string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth("secret")(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c, called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops-dashboard"},
	})

	rec, c, called := runAuth(t, "Bearer "+token)

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if c.Get(ContextKeySubject) != "ops-dashboard" {
		t.Fatalf("subject not set")
	}
	if c.Get(ContextKeyRole) != RoleAdmin {
		t.Fatalf("role not set")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	expired := signToken(t, jwt.SigningMethodHS256, []byte("secret"), Claims{
		Role: RoleReader,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), Claims{Role: RoleAdmin})
	wrongAlg := signToken(t, jwt.SigningMethodHS384, []byte("secret"), Claims{Role: RoleAdmin})

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token abc",
		"garbage token":  "Bearer not-a-token",
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
		"wrong alg":      "Bearer " + wrongAlg,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _, called := runAuth(t, header)
			if called {
				t.Fatalf("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
