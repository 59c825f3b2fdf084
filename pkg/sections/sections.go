// Package sections resolves which polling sections a referente may
// administer and mutates RDL assignments in the Dati range.
//
// # Overview
//
// A Referente row (email, comune, municipio) grants authority over every
// section of that comune and municipio. Visibility is the join of the
// caller's Referenti rows with the Sezioni range on (comune, municipio).
// Assignments live in Dati as (comune, sezione, email, extra columns);
// at most one email per (comune, sezione).
//
// Mutations are last-writer-wins at the spreadsheet level: there is no
// locking, which is acceptable for human-paced usage.
package sections

import "errors"

// Sentinel errors mapped to HTTP status codes by the API layer
var (
	// ErrForbidden means the caller lacks the referenti capability or
	// visibility over the target section.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the target assignment row does not exist.
	ErrNotFound = errors.New("not found")
)

// Column positions. Referenti rows are (email, comune, municipio); Sezioni
// rows are (sezione, comune, municipio); Dati rows are
// (comune, sezione, email, extra...).
const (
	referentiEmailCol     = 0
	referentiComuneCol    = 1
	referentiMunicipioCol = 2

	sezioniNumberCol    = 0
	sezioniComuneCol    = 1
	sezioniMunicipioCol = 2

	datiComuneCol  = 0
	datiSezioneCol = 1
	datiEmailCol   = 2
	datiExtraCol   = 3
)

// Section is a polling-station unit
type Section struct {
	Comune    string `json:"comune"`
	Sezione   string `json:"sezione"`
	Municipio string `json:"municipio,omitempty"`
}

// Assignment is a Dati row: a section with its assigned RDL email and any
// KPI columns already recorded.
type Assignment struct {
	Comune  string   `json:"comune"`
	Sezione string   `json:"sezione"`
	Email   string   `json:"email"`
	Extra   []string `json:"values,omitempty"`
}

// Lists groups a referente's visible sections by assignment state
type Lists struct {
	Assigned   []Assignment `json:"assigned"`
	Unassigned []Section    `json:"unassigned"`
}

func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
