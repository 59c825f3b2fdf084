package sheets

import "fmt"

// Range names used across the application. The spreadsheet defines these as
// named ranges; the YAML layout overlay can rename them per deployment.
const (
	RangeReferenti = "Referenti"
	RangeSezioni   = "Sezioni"
	RangeDati      = "Dati"
	RangeKPI       = "KPI"
	RangeListe     = "Liste"
	RangeCandidati = "Candidati"
)

// Origin anchors a named range inside the spreadsheet so relative row/column
// coordinates can be translated to A1 notation for writes.
type Origin struct {
	Sheet string `yaml:"sheet"`
	// Row and Col are 1-based spreadsheet coordinates of the range's
	// top-left cell.
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

// Layout maps named ranges to their anchoring origins.
type Layout struct {
	Origins map[string]Origin `yaml:"origins"`
}

// DefaultLayout returns the layout of the reference spreadsheet: each data
// range lives on its own sheet with a single header row.
func DefaultLayout() Layout {
	return Layout{
		Origins: map[string]Origin{
			RangeReferenti: {Sheet: "Referenti", Row: 2, Col: 1},
			RangeSezioni:   {Sheet: "Sezioni", Row: 2, Col: 1},
			RangeDati:      {Sheet: "RDL", Row: 2, Col: 1},
			RangeKPI:       {Sheet: "KPI", Row: 2, Col: 1},
			RangeListe:     {Sheet: "Liste", Row: 2, Col: 1},
			RangeCandidati: {Sheet: "Candidati", Row: 2, Col: 1},
		},
	}
}

// CellRange translates zero-based (row, startCol) coordinates within a named
// range into an A1 span covering width cells.
func (l Layout) CellRange(rangeName string, row, startCol, width int) (string, error) {
	origin, ok := l.Origins[rangeName]
	if !ok {
		return "", fmt.Errorf("unknown range: %s", rangeName)
	}
	if width < 1 {
		width = 1
	}

	absRow := origin.Row + row
	absCol := origin.Col + startCol
	return fmt.Sprintf("%s!%s%d:%s%d",
		origin.Sheet,
		columnLetter(absCol), absRow,
		columnLetter(absCol+width-1), absRow,
	), nil
}

// columnLetter converts a 1-based column number to its A1 letter form.
func columnLetter(col int) string {
	letters := ""
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return letters
}
