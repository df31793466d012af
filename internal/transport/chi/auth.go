package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/kailas-cloud/staffdex/internal/config"
	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/tenant"
	"github.com/kailas-cloud/staffdex/internal/metrics"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// TenantAuthMiddleware resolves the Bearer API key to a tenant context.
// Requests without a resolvable tenant fail closed with 401.
func TenantAuthMiddleware(keys []config.TenantKey) func(http.Handler) http.Handler {
	byKey := make(map[string]tenant.Context, len(keys))
	for _, k := range keys {
		if k.Key == "" || k.TenantID == "" {
			continue
		}
		role := tenant.Role(k.Role)
		if !role.IsValid() {
			role = tenant.RoleMember
		}
		byKey[k.Key] = tenant.Context{ID: k.TenantID, Role: role}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			tc, ok := byKey[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, domain.ErrTenantContext.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(tenant.NewContext(r.Context(), tc)))
		})
	}
}

// limiter is the rate limit check the middleware depends on (ISP).
type limiter interface {
	Allow(ctx context.Context, tenantID string) error
}

// RateLimitMiddleware enforces the per-tenant rate limit after auth.
// Requests without a tenant context pass through; auth already rejects them.
func RateLimitMiddleware(l limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := tenant.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if err := l.Allow(r.Context(), tc.ID); err != nil {
				metrics.RateLimitedTotal.WithLabelValues(tc.ID).Inc()
				writeError(w, http.StatusTooManyRequests, CodeRateLimited, domain.ErrRateLimited.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
