package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elettorale/seggio/pkg/audit"
	"github.com/elettorale/seggio/pkg/auth"
	"github.com/elettorale/seggio/pkg/contextkeys"
	"github.com/elettorale/seggio/pkg/permissions"
)

type stubResolver struct {
	caps permissions.Capabilities
	err  error
}

func (r *stubResolver) Resolve(context.Context, string) (permissions.Capabilities, error) {
	return r.caps, r.err
}

type memoryRecorder struct {
	events []audit.Event
}

func (r *memoryRecorder) Record(event audit.Event) {
	r.events = append(r.events, event)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("assigns a fresh id", func(t *testing.T) {
		var got string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = contextkeys.RequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, got)
		assert.Equal(t, got, rec.Header().Get("X-Request-ID"))
	})

	t.Run("keeps an incoming id", func(t *testing.T) {
		var got string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = contextkeys.RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "upstream-id", got)
	})
}

func TestAuth(t *testing.T) {
	verifier := &auth.StaticVerifier{Tokens: map[string]string{"good-token": "a@x.com"}}

	t.Run("missing header is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Auth(verifier, nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "bearer")
	})

	t.Run("malformed header is 401", func(t *testing.T) {
		for _, header := range []string{"good-token", "Basic abc", "Bearer ", "Bearer"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			Auth(verifier, nil)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		}
	})

	t.Run("invalid token is 403 and audited", func(t *testing.T) {
		recorder := &memoryRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()
		Auth(verifier, recorder)(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.Len(t, recorder.events, 1)
		assert.Equal(t, audit.EventTypeTokenRejected, recorder.events[0].Type)
	})

	t.Run("valid token reaches the handler with its identity", func(t *testing.T) {
		var identity *auth.Identity
		handler := Auth(verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity = IdentityFrom(r)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, identity)
		assert.Equal(t, "a@x.com", identity.Email)
	})
}

func TestRequireCapability(t *testing.T) {
	authed := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := contextkeys.WithIdentity(r.Context(), &auth.Identity{Email: "a@x.com"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	tests := []struct {
		name  string
		caps  permissions.Capabilities
		check CapabilityCheck
		want  int
	}{
		{"sections granted", permissions.Capabilities{Sections: true}, NeedSections, http.StatusOK},
		{"sections denied", permissions.Capabilities{KPI: true}, NeedSections, http.StatusForbidden},
		{"referenti granted", permissions.Capabilities{Referenti: true}, NeedReferenti, http.StatusOK},
		{"kpi denied", permissions.Capabilities{Sections: true}, NeedKPI, http.StatusForbidden},
		{"dashboard admits sections", permissions.Capabilities{Sections: true}, NeedDashboard, http.StatusOK},
		{"dashboard admits kpi", permissions.Capabilities{KPI: true}, NeedDashboard, http.StatusOK},
		{"dashboard denies neither", permissions.Capabilities{Referenti: true}, NeedDashboard, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := authed(RequireCapability(&stubResolver{caps: tt.caps}, tt.check)(okHandler()))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("without identity is 401", func(t *testing.T) {
		handler := RequireCapability(&stubResolver{}, NeedSections)(okHandler())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("resolver failure is 500", func(t *testing.T) {
		handler := authed(RequireCapability(&stubResolver{err: assert.AnError}, NeedSections)(okHandler()))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
