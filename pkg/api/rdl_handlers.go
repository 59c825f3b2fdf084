package api

import (
	"net/http"

	"github.com/elettorale/seggio/pkg/httputil"
	"github.com/elettorale/seggio/pkg/middleware"
)

type assignRequest struct {
	Comune  string `json:"comune"`
	Sezione string `json:"sezione"`
	Email   string `json:"email"`
}

type unassignRequest struct {
	Comune  string `json:"comune"`
	Sezione string `json:"sezione"`
}

func (s *Server) getAssignedEmails(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r)
	emails, err := s.deps.Sections.AssignedEmails(r.Context(), identity.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, valuesResponse{Values: emails})
}

func (s *Server) getSectionLists(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r)
	lists, err := s.deps.Sections.SectionLists(r.Context(), identity.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, lists)
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, "comune", req.Comune) ||
		!httputil.RequireNonEmpty(w, "sezione", req.Sezione) ||
		!httputil.RequireNonEmpty(w, "email", req.Email) {
		return
	}

	identity := middleware.IdentityFrom(r)
	if err := s.deps.Sections.Assign(r.Context(), identity.Email, req.Comune, req.Sezione, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "assigned"})
}

func (s *Server) unassign(w http.ResponseWriter, r *http.Request) {
	var req unassignRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, "comune", req.Comune) ||
		!httputil.RequireNonEmpty(w, "sezione", req.Sezione) {
		return
	}

	identity := middleware.IdentityFrom(r)
	if err := s.deps.Sections.Unassign(r.Context(), identity.Email, req.Comune, req.Sezione); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "unassigned"})
}
