package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elettorale/seggio/pkg/auth"
	"github.com/elettorale/seggio/pkg/election"
	"github.com/elettorale/seggio/pkg/kpi"
	"github.com/elettorale/seggio/pkg/permissions"
	"github.com/elettorale/seggio/pkg/sections"
	"github.com/elettorale/seggio/pkg/sheets"
)

// Fixture identities:
//   referente@x.com  referente for ROMA/1 (also gets sections implicitly)
//   rdl@x.com        assigned to ROMA/1 (sections capability only)
//   kpi@x.com        KPI reference list member
//   nobody@x.com     authenticated but no capabilities
func newTestServer(t *testing.T) (*Server, *sheets.MemoryStore) {
	t.Helper()

	store := sheets.NewMemoryStore()
	store.Seed(sheets.RangeReferenti, [][]string{
		{"referente@x.com", "ROMA", "1"},
	})
	store.Seed(sheets.RangeSezioni, [][]string{
		{"1", "ROMA", "1"},
		{"2", "ROMA", "1"},
		{"7", "MILANO", "3"},
	})
	store.Seed(sheets.RangeDati, [][]string{
		{"ROMA", "1", "rdl@x.com", "100"},
	})
	store.Seed(sheets.RangeKPI, [][]string{
		{"kpi@x.com"},
	})
	store.Seed(sheets.RangeListe, [][]string{
		{"Lista Uno"},
	})
	store.Seed(sheets.RangeCandidati, [][]string{
		{"Rossi", "Lista Uno"},
	})

	verifier := &auth.StaticVerifier{Tokens: map[string]string{
		"tok-referente": "referente@x.com",
		"tok-rdl":       "rdl@x.com",
		"tok-kpi":       "kpi@x.com",
		"tok-nobody":    "nobody@x.com",
	}}

	resolver := permissions.NewSheetResolver(store, permissions.NopCache{}, nil)
	kpiService := kpi.NewService(store)

	server := NewServer(Deps{
		Verifier: verifier,
		Resolver: resolver,
		Sections: sections.NewService(store, resolver, nil, nil),
		Election: election.NewService(store),
		KPI:      kpiService,
	})
	return server, store
}

func doRequest(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func TestGetPermissions(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("without a token", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/permissions", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with an unknown token", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/permissions", "tok-unknown", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("referente capabilities", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/permissions", "tok-referente", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var caps permissions.Capabilities
		decodeBody(t, rec, &caps)
		assert.True(t, caps.Referenti)
		assert.True(t, caps.Sections)
		assert.False(t, caps.KPI)
	})

	t.Run("no capabilities is still a valid answer", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/permissions", "tok-nobody", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var caps permissions.Capabilities
		decodeBody(t, rec, &caps)
		assert.Equal(t, permissions.Capabilities{}, caps)
	})
}

func TestElectionRoutes(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("sections capability admits", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/election/lists", "tok-rdl", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Values [][]string `json:"values"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, [][]string{{"Lista Uno"}}, body.Values)
	})

	t.Run("kpi capability admits", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/election/candidates", "tok-kpi", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no capability is 403", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/election/lists", "tok-nobody", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestKPIRoutes(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("dati projection", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/kpi/dati", "tok-kpi", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Values []kpi.Row `json:"values"`
		}
		decodeBody(t, rec, &body)
		require.Len(t, body.Values, 1)
		assert.Equal(t, kpi.Row{Comune: "ROMA", Sezione: "1", Values: []string{"100"}}, body.Values[0])
	})

	t.Run("sezioni registry", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/kpi/sezioni", "tok-kpi", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Values []kpi.SectionInfo `json:"values"`
		}
		decodeBody(t, rec, &body)
		assert.Len(t, body.Values, 3)
	})

	t.Run("sections capability alone is 403", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/kpi/dati", "tok-rdl", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSectionRoutes(t *testing.T) {
	t.Run("own rows", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodGet, "/api/sections", "tok-rdl", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Values []sections.Assignment `json:"values"`
		}
		decodeBody(t, rec, &body)
		require.Len(t, body.Values, 1)
		assert.Equal(t, "rdl@x.com", body.Values[0].Email)
		assert.Equal(t, []string{"100"}, body.Values[0].Extra)
	})

	t.Run("update own row", func(t *testing.T) {
		server, store := newTestServer(t)
		rec := doRequest(t, server, http.MethodPost, "/api/sections", "tok-rdl", updateSectionRequest{
			Comune: "ROMA", Sezione: "1", Values: []string{"150", "9"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rows, err := store.Read(t.Context(), sheets.RangeDati)
		require.NoError(t, err)
		assert.Equal(t, []string{"ROMA", "1", "rdl@x.com", "150", "9"}, rows[0])
	})

	t.Run("updating someone else's row is 404", func(t *testing.T) {
		server, store := newTestServer(t)
		store.Seed(sheets.RangeDati, [][]string{
			{"ROMA", "1", "other@x.com"},
		})
		// rdl@x.com keeps the sections capability via the fixture Dati
		// row; reseed it back alongside the foreign row
		require.NoError(t, store.Append(t.Context(), sheets.RangeDati, []string{"ROMA", "2", "rdl@x.com"}))

		rec := doRequest(t, server, http.MethodPost, "/api/sections", "tok-rdl", updateSectionRequest{
			Comune: "ROMA", Sezione: "1", Values: []string{"150"},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing fields are 400", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodPost, "/api/sections", "tok-rdl", updateSectionRequest{
			Comune: "ROMA",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRDLRoutes(t *testing.T) {
	t.Run("assigned emails include the caller", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodGet, "/api/rdl/emails", "tok-referente", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Values []string `json:"values"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, []string{"rdl@x.com", "referente@x.com"}, body.Values)
	})

	t.Run("section lists split by assignment", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodGet, "/api/rdl/sections", "tok-referente", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var lists sections.Lists
		decodeBody(t, rec, &lists)
		require.Len(t, lists.Assigned, 1)
		assert.Equal(t, "1", lists.Assigned[0].Sezione)
		require.Len(t, lists.Unassigned, 1)
		assert.Equal(t, "2", lists.Unassigned[0].Sezione)
	})

	t.Run("assign writes the sheet", func(t *testing.T) {
		server, store := newTestServer(t)
		rec := doRequest(t, server, http.MethodPost, "/api/rdl/assign", "tok-referente", assignRequest{
			Comune: "ROMA", Sezione: "2", Email: "new@x.com",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rows, err := store.Read(t.Context(), sheets.RangeDati)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"ROMA", "2", "new@x.com"}, rows[1])
	})

	t.Run("assign outside visibility is 403", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodPost, "/api/rdl/assign", "tok-referente", assignRequest{
			Comune: "MILANO", Sezione: "7", Email: "new@x.com",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unassign clears the email", func(t *testing.T) {
		server, store := newTestServer(t)
		rec := doRequest(t, server, http.MethodPost, "/api/rdl/unassign", "tok-referente", unassignRequest{
			Comune: "ROMA", Sezione: "1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rows, err := store.Read(t.Context(), sheets.RangeDati)
		require.NoError(t, err)
		assert.Equal(t, []string{"ROMA", "1", "", "100"}, rows[0])
	})

	t.Run("unassign of a missing row is 404", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodPost, "/api/rdl/unassign", "tok-referente", unassignRequest{
			Comune: "ROMA", Sezione: "2",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing body fields are 400", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodPost, "/api/rdl/assign", "tok-referente", assignRequest{
			Comune: "ROMA", Sezione: "2",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Contains(t, body["error"], "email")
	})

	t.Run("non-referente is 403", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doRequest(t, server, http.MethodGet, "/api/rdl/emails", "tok-rdl", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestUpstreamErrorsPassThrough(t *testing.T) {
	server, store := newTestServer(t)
	store.FailWith(&sheets.UpstreamError{StatusCode: http.StatusBadGateway, Message: "quota exceeded"})

	rec := doRequest(t, server, http.MethodGet, "/api/permissions", "tok-referente", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "quota exceeded", body["error"])
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('ok')"), 0o644))

	server, _ := newTestServer(t)
	server.deps.StaticDir = dir
	server = NewServer(server.deps)

	t.Run("serves real files", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/app.js", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "console.log")
	})

	t.Run("falls back to index.html on deep links", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/sections/ROMA/1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "app")
	})
}
