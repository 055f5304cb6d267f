package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/models"
)

// TokenVerifier is the part of auth.TokenService the gateway needs.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Gateway authenticates requests inside the API namespace.
type Gateway struct {
	verifier  TokenVerifier
	apiPrefix string
	exempt    map[string]bool
}

// NewGateway returns a gateway for paths under apiPrefix. Paths outside it
// and the exempt paths pass through without a principal.
func NewGateway(v TokenVerifier, apiPrefix string, exempt ...string) *Gateway {
	g := &Gateway{
		verifier:  v,
		apiPrefix: strings.TrimSuffix(apiPrefix, "/") + "/",
		exempt:    make(map[string]bool, len(exempt)),
	}
	for _, p := range exempt {
		g.exempt[p] = true
	}
	return g
}

// Intercept never touches the credential store. A request that already
// carries a principal was verified earlier in the same request and passes
// through, so a route pipeline may repeat the gateway ahead of its guards.
func (g *Gateway) Intercept(r *http.Request) (context.Context, *Rejection) {
	path := r.URL.Path
	if !strings.HasPrefix(path, g.apiPrefix) || g.exempt[path] {
		return r.Context(), nil
	}
	if _, ok := auth.PrincipalFrom(r.Context()); ok {
		return r.Context(), nil
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, reject(http.StatusUnauthorized)
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		return nil, reject(http.StatusUnauthorized)
	}
	return auth.WithPrincipal(r.Context(), claims.Principal()), nil
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}

// RequireRole admits requests whose principal holds one of roles. It trusts
// the principal attached by the gateway and never re-verifies the token.
func RequireRole(roles ...models.Role) Interceptor {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return InterceptorFunc(func(r *http.Request) (context.Context, *Rejection) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok || !allowed[p.Role] {
			return nil, reject(http.StatusForbidden)
		}
		return r.Context(), nil
	})
}

// RequirePrincipal rejects requests that reached it without a principal.
// Exempt routes must not be mounted behind it.
func RequirePrincipal() Interceptor {
	return InterceptorFunc(func(r *http.Request) (context.Context, *Rejection) {
		if _, ok := auth.PrincipalFrom(r.Context()); !ok {
			return nil, reject(http.StatusUnauthorized)
		}
		return r.Context(), nil
	})
}
