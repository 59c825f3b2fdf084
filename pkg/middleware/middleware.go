// Package middleware provides the HTTP middleware chain shared by all
// protected routes: request IDs, bearer-token authentication and
// capability gates.
package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/elettorale/seggio/pkg/audit"
	"github.com/elettorale/seggio/pkg/auth"
	"github.com/elettorale/seggio/pkg/contextkeys"
	"github.com/elettorale/seggio/pkg/httputil"
	"github.com/elettorale/seggio/pkg/permissions"
)

// RequestID assigns a UUID to every request, honoring an incoming
// X-Request-ID header from a trusted frontend proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(contextkeys.WithRequestID(r.Context(), id)))
	})
}

// Auth verifies the Authorization bearer token and stores the caller's
// identity in the request context. A missing or malformed header is 401;
// a token that fails verification is 403.
func Auth(verifier auth.Verifier, auditor audit.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httputil.WriteUnauthorized(w, "missing bearer token")
				return
			}

			identity, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				if auditor != nil {
					auditor.Record(audit.Event{
						Type:      audit.EventTypeTokenRejected,
						Status:    audit.StatusDenied,
						Message:   err.Error(),
						RequestID: contextkeys.RequestID(r.Context()),
					})
				}
				httputil.WriteForbidden(w, "invalid identity token")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextkeys.WithIdentity(r.Context(), identity)))
		})
	}
}

// IdentityFrom returns the verified identity set by Auth, or nil
func IdentityFrom(r *http.Request) *auth.Identity {
	identity, _ := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity)
	return identity
}

// CapabilityCheck selects which resolved capabilities admit a request
type CapabilityCheck func(permissions.Capabilities) bool

// Predefined gates matching the route table
var (
	NeedSections  CapabilityCheck = func(c permissions.Capabilities) bool { return c.Sections }
	NeedReferenti CapabilityCheck = func(c permissions.Capabilities) bool { return c.Referenti }
	NeedKPI       CapabilityCheck = func(c permissions.Capabilities) bool { return c.KPI }
	NeedDashboard CapabilityCheck = func(c permissions.Capabilities) bool { return c.Sections || c.KPI }
)

// RequireCapability resolves the caller's capabilities and rejects with 403
// when the check fails. Must run after Auth.
func RequireCapability(resolver permissions.Resolver, check CapabilityCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFrom(r)
			if identity == nil {
				httputil.WriteUnauthorized(w, "missing bearer token")
				return
			}

			caps, err := resolver.Resolve(r.Context(), identity.Email)
			if err != nil {
				httputil.WriteInternalError(w, err)
				return
			}
			if !check(caps) {
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
