// Package sheets provides access to the spreadsheet acting as the backing
// store. All election data lives in named ranges of a Google Sheet; this
// package exposes them as string tables.
//
// # Overview
//
// The Store interface reads whole named ranges and writes individual rows or
// cells within them. Row and column coordinates are zero-based and relative to
// the named range, so callers never deal with A1 notation; the Client
// translates coordinates using a Layout.
//
// Implementations:
//
//   - Client: Google Sheets v4 values API over HTTP, authenticated with a
//     service-account token source
//   - MemoryStore: in-process fake for tests and dev mode
//   - InstrumentedStore: Prometheus instrumentation wrapper
package sheets

import "context"

// Store is the remote tabular store. All values are strings; the spreadsheet
// API returns formatted values and the application never relies on cell types.
type Store interface {
	// Read returns all rows of a named range. Trailing empty cells may be
	// omitted by the backend, so rows are not guaranteed to be rectangular.
	Read(ctx context.Context, rangeName string) ([][]string, error)

	// UpdateRow overwrites len(values) cells of one row of a named range,
	// starting at startCol. Cells outside the written span are untouched.
	UpdateRow(ctx context.Context, rangeName string, row, startCol int, values []string) error

	// Append adds a row after the last non-empty row of a named range.
	Append(ctx context.Context, rangeName string, row []string) error
}
