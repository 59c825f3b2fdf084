// Package api provides the HTTP REST API server for the seggio election
// operations backend.
//
// # Overview
//
// This package implements the HTTP layer that exposes the backend's
// functionality to the dashboard frontend. It handles capability resolution,
// election label lookups, KPI dashboard reads, RDL assignment management and
// the poll-worker self-service endpoints, plus static SPA serving.
//
// # Architecture
//
// The API is built on gorilla/mux and organized into capability-gated route
// groups:
//
//   - /api/permissions: the caller's resolved capabilities
//   - /api/election/*: election label lookups (sections or kpi capability)
//   - /api/kpi/*: dashboard projections (kpi capability)
//   - /api/sections: a poll worker's own rows (sections capability)
//   - /api/rdl/*: assignment management (referenti capability)
//
// Every /api route runs behind bearer-token authentication; middleware
// resolves capabilities against the spreadsheet-backed permission resolver.
// Errors are returned as {"error": message} JSON with 401/403/404/400/500
// mapped from the service-layer sentinels.
package api
