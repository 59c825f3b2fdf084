package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/elettorale/seggio/pkg/audit"
	"github.com/elettorale/seggio/pkg/auth"
	"github.com/elettorale/seggio/pkg/election"
	"github.com/elettorale/seggio/pkg/httputil"
	"github.com/elettorale/seggio/pkg/kpi"
	"github.com/elettorale/seggio/pkg/middleware"
	"github.com/elettorale/seggio/pkg/observability"
	"github.com/elettorale/seggio/pkg/permissions"
	"github.com/elettorale/seggio/pkg/sections"
)

// KPISource serves the dashboard projections. Satisfied by both the live
// kpi.Service and the cron-refreshed kpi.Snapshotter.
type KPISource interface {
	Data(ctx context.Context) ([]kpi.Row, error)
	Sections(ctx context.Context) ([]kpi.SectionInfo, error)
}

// Deps carries everything the server routes over. Metrics, Auditor and
// TraceEnabled are optional.
type Deps struct {
	Verifier auth.Verifier
	Resolver permissions.Resolver
	Sections *sections.Service
	Election *election.Service
	KPI      KPISource
	Auditor  audit.Recorder
	Metrics  *observability.Metrics

	// StaticDir enables SPA serving when non-empty
	StaticDir   string
	CORSOrigins []string

	TraceEnabled bool
}

// Server is the public HTTP surface
type Server struct {
	router  *mux.Router
	handler http.Handler
	deps    Deps
}

// NewServer builds the router and middleware chain
func NewServer(deps Deps) *Server {
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()

	var handler http.Handler = s.router
	if deps.TraceEnabled {
		handler = otelhttp.NewHandler(handler, "seggio-api")
	}
	s.handler = handler
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RecoveryMiddleware)
	s.router.Use(middleware.RequestID)
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.HTTPMiddleware)
	}
	s.router.Use(httputil.LoggingMiddleware)
	if len(s.deps.CORSOrigins) > 0 {
		s.router.Use(httputil.CORSMiddleware(s.deps.CORSOrigins))
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(s.deps.Verifier, s.deps.Auditor))

	api.HandleFunc("/permissions", s.getPermissions).Methods("GET")

	electionRoutes := api.PathPrefix("/election").Subrouter()
	electionRoutes.Use(middleware.RequireCapability(s.deps.Resolver, middleware.NeedDashboard))
	electionRoutes.HandleFunc("/lists", s.getElectionLists).Methods("GET")
	electionRoutes.HandleFunc("/candidates", s.getElectionCandidates).Methods("GET")

	kpiRoutes := api.PathPrefix("/kpi").Subrouter()
	kpiRoutes.Use(middleware.RequireCapability(s.deps.Resolver, middleware.NeedKPI))
	kpiRoutes.HandleFunc("/dati", s.getKPIData).Methods("GET")
	kpiRoutes.HandleFunc("/sezioni", s.getKPISections).Methods("GET")

	sectionRoutes := api.PathPrefix("/sections").Subrouter()
	sectionRoutes.Use(middleware.RequireCapability(s.deps.Resolver, middleware.NeedSections))
	sectionRoutes.HandleFunc("", s.getOwnSections).Methods("GET")
	sectionRoutes.HandleFunc("", s.updateOwnSection).Methods("POST")

	rdlRoutes := api.PathPrefix("/rdl").Subrouter()
	rdlRoutes.Use(middleware.RequireCapability(s.deps.Resolver, middleware.NeedReferenti))
	rdlRoutes.HandleFunc("/emails", s.getAssignedEmails).Methods("GET")
	rdlRoutes.HandleFunc("/sections", s.getSectionLists).Methods("GET")
	rdlRoutes.HandleFunc("/assign", s.assign).Methods("POST")
	rdlRoutes.HandleFunc("/unassign", s.unassign).Methods("POST")

	if s.deps.StaticDir != "" {
		s.router.PathPrefix("/").Handler(spaHandler{root: s.deps.StaticDir})
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
