package api

import (
	"errors"
	"net/http"

	"github.com/elettorale/seggio/pkg/httputil"
	"github.com/elettorale/seggio/pkg/middleware"
	"github.com/elettorale/seggio/pkg/sections"
	"github.com/elettorale/seggio/pkg/sheets"
)

// valuesResponse wraps list payloads the way the frontend expects
type valuesResponse struct {
	Values interface{} `json:"values"`
}

func (s *Server) getPermissions(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "missing bearer token")
		return
	}

	caps, err := s.deps.Resolver.Resolve(r.Context(), identity.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, caps)
}

func (s *Server) getElectionLists(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Election.Lists(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, valuesResponse{Values: rows})
}

func (s *Server) getElectionCandidates(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Election.Candidates(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, valuesResponse{Values: rows})
}

func (s *Server) getKPIData(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.KPI.Data(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, valuesResponse{Values: rows})
}

func (s *Server) getKPISections(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.KPI.Sections(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, valuesResponse{Values: rows})
}

// writeServiceError maps service errors onto the error taxonomy: sentinel
// errors carry their status, upstream spreadsheet failures pass their
// message through as a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sections.ErrForbidden):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, sections.ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		var upstream *sheets.UpstreamError
		if errors.As(err, &upstream) {
			httputil.WriteErrorMessage(w, http.StatusInternalServerError, upstream.Message)
			return
		}
		httputil.WriteInternalError(w, err)
	}
}
