package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	s, err := auth.NewTokenService([]byte("middleware-test"))
	require.NoError(t, err)
	return s
}

// countingVerifier records how often the gateway asked for verification.
type countingVerifier struct {
	inner TokenVerifier
	calls int
}

func (v *countingVerifier) Verify(token string) (*auth.Claims, error) {
	v.calls++
	return v.inner.Verify(token)
}

func newEngine(p Pipeline) *gin.Engine {
	r := gin.New()
	h := func(c *gin.Context) {
		resp := gin.H{"ok": true}
		if pr, ok := auth.PrincipalFrom(c.Request.Context()); ok {
			resp["user"] = pr.Username
			resp["role"] = pr.Role
		}
		c.JSON(http.StatusOK, resp)
	}
	r.Use(p.Handler())
	r.GET("/api/auth/users", h)
	r.POST("/api/auth/login", h)
	r.GET("/api/serverStatus", h)
	r.GET("/dashboard", h)
	return r
}

func do(r http.Handler, method, path, authz string) (int, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestGateway(t *testing.T) {
	tokens := newTokens(t)
	admin, err := tokens.Issue(1, "root", models.RoleAdmin)
	require.NoError(t, err)

	v := &countingVerifier{inner: tokens}
	r := newEngine(Chain(NewGateway(v, "/api", "/api/auth/login", "/api/serverStatus")))

	tests := []struct {
		name   string
		method string
		path   string
		authz  string
		status int
	}{
		{"no header", http.MethodGet, "/api/auth/users", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/api/auth/users", "Basic " + admin, http.StatusUnauthorized},
		{"lowercase scheme", http.MethodGet, "/api/auth/users", "bearer " + admin, http.StatusUnauthorized},
		{"empty token", http.MethodGet, "/api/auth/users", "Bearer ", http.StatusUnauthorized},
		{"garbage", http.MethodGet, "/api/auth/users", "Bearer garbage", http.StatusUnauthorized},
		{"valid", http.MethodGet, "/api/auth/users", "Bearer " + admin, http.StatusOK},
		{"login exempt", http.MethodPost, "/api/auth/login", "", http.StatusOK},
		{"status exempt", http.MethodGet, "/api/serverStatus", "", http.StatusOK},
		{"outside api", http.MethodGet, "/dashboard", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(r, tc.method, tc.path, tc.authz)
			assert.Equal(t, tc.status, status)
			if status == http.StatusUnauthorized {
				assert.Equal(t, "Unauthorized", body["error"])
			}
		})
	}

	status, body := do(r, http.MethodGet, "/api/auth/users", "Bearer "+admin)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "root", body["user"])
	assert.Equal(t, "admin", body["role"])
}

func TestGateway_ExemptPathsSkipVerification(t *testing.T) {
	v := &countingVerifier{inner: newTokens(t)}
	r := newEngine(Chain(NewGateway(v, "/api/", "/api/auth/login")))

	status, _ := do(r, http.MethodPost, "/api/auth/login", "Bearer garbage")
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(r, http.MethodGet, "/dashboard", "Bearer garbage")
	assert.Equal(t, http.StatusOK, status)
	assert.Zero(t, v.calls)
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens(t)
	admin, err := tokens.Issue(1, "root", models.RoleAdmin)
	require.NoError(t, err)
	user, err := tokens.Issue(2, "bob", models.RoleUser)
	require.NoError(t, err)

	r := newEngine(Chain(
		NewGateway(tokens, "/api", "/api/auth/login", "/api/serverStatus"),
		RequireRole(models.RoleAdmin),
	))

	status, _ := do(r, http.MethodGet, "/api/auth/users", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, status)

	status, body := do(r, http.MethodGet, "/api/auth/users", "Bearer "+user)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden", body["error"])

	// Authentication runs first: no token is 401, not 403.
	status, _ = do(r, http.MethodGet, "/api/auth/users", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireRole_NoPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
	_, rej := RequireRole(models.RoleAdmin, models.RoleUser).Intercept(req)
	require.NotNil(t, rej)
	assert.Equal(t, http.StatusForbidden, rej.Status)

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{UserID: 2, Username: "bob", Role: models.RoleUser})
	_, rej = RequireRole(models.RoleAdmin, models.RoleUser).Intercept(req.WithContext(ctx))
	assert.Nil(t, rej)
}

func TestRequirePrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	_, rej := RequirePrincipal().Intercept(req)
	require.NotNil(t, rej)
	assert.Equal(t, http.StatusUnauthorized, rej.Status)
}

func TestPipeline_StopsAtFirstRejection(t *testing.T) {
	var order []string
	step := func(name string, rej *Rejection) Interceptor {
		return InterceptorFunc(func(r *http.Request) (context.Context, *Rejection) {
			order = append(order, name)
			return r.Context(), rej
		})
	}

	p := Chain(step("a", nil), step("b", &Rejection{Status: http.StatusTeapot, Message: "no"})).Then(step("c", nil))
	_, rej := p.Run(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, rej)
	assert.Equal(t, http.StatusTeapot, rej.Status)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestPipeline_ThreadsContext(t *testing.T) {
	type key struct{}
	set := InterceptorFunc(func(r *http.Request) (context.Context, *Rejection) {
		return context.WithValue(r.Context(), key{}, "v"), nil
	})
	var seen any
	read := InterceptorFunc(func(r *http.Request) (context.Context, *Rejection) {
		seen = r.Context().Value(key{})
		return r.Context(), nil
	})

	req, rej := Chain(set, read).Run(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Nil(t, rej)
	assert.Equal(t, "v", seen)
	assert.Equal(t, "v", req.Context().Value(key{}))
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Token abc", "Bearer a b",
		"Bearer  abc.def.ghi", "Bearer abc.def.ghi ", "Bearer\tabc.def.ghi", "bearer abc.def.ghi"} {
		_, ok := bearerToken(h)
		assert.False(t, ok, h)
	}
}

func TestGateway_VerifiesOncePerRequest(t *testing.T) {
	tokens := newTokens(t)
	token, err := tokens.Issue(1, "root", models.RoleAdmin)
	require.NoError(t, err)

	v := &countingVerifier{inner: tokens}
	gw := NewGateway(v, "/api")
	p := Chain(gw).Then(gw, RequireRole(models.RoleAdmin))

	r := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	out, rej := p.Run(r)
	require.Nil(t, rej)
	assert.Equal(t, 1, v.calls)

	principal, ok := auth.PrincipalFrom(out.Context())
	require.True(t, ok)
	assert.Equal(t, "root", principal.Username)
}
