package api

import (
	"net/http"

	"github.com/elettorale/seggio/pkg/httputil"
	"github.com/elettorale/seggio/pkg/middleware"
)

type updateSectionRequest struct {
	Comune  string   `json:"comune"`
	Sezione string   `json:"sezione"`
	Values  []string `json:"values"`
}

func (s *Server) getOwnSections(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r)
	rows, err := s.deps.Sections.OwnRows(r.Context(), identity.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, valuesResponse{Values: rows})
}

func (s *Server) updateOwnSection(w http.ResponseWriter, r *http.Request) {
	var req updateSectionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, "comune", req.Comune) ||
		!httputil.RequireNonEmpty(w, "sezione", req.Sezione) {
		return
	}
	if len(req.Values) == 0 {
		httputil.WriteBadRequest(w, "values must not be empty")
		return
	}

	identity := middleware.IdentityFrom(r)
	if err := s.deps.Sections.UpdateOwnRow(r.Context(), identity.Email, req.Comune, req.Sezione, req.Values); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "updated"})
}
