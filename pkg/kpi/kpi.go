// Package kpi exposes the raw monitoring data the KPI dashboard reads:
// the Dati rows with their recorded values and the full section registry.
package kpi

import (
	"context"

	"github.com/elettorale/seggio/pkg/sheets"
)

// Dati row layout: (comune, sezione, email, values...). Sezioni row
// layout: (sezione, comune, municipio).
const (
	datiComuneCol  = 0
	datiSezioneCol = 1
	datiValuesCol  = 3

	sezioniNumberCol    = 0
	sezioniComuneCol    = 1
	sezioniMunicipioCol = 2
)

// Row is a Dati row projected for the dashboard. The assignee email is
// deliberately omitted.
type Row struct {
	Comune  string   `json:"comune"`
	Sezione string   `json:"sezione"`
	Values  []string `json:"values"`
}

// SectionInfo is a Sezioni registry row
type SectionInfo struct {
	Comune    string `json:"comune"`
	Sezione   string `json:"sezione"`
	Municipio string `json:"municipio"`
}

// Service projects the Dati and Sezioni ranges for read-only dashboard
// consumption.
type Service struct {
	store sheets.Store
}

func NewService(store sheets.Store) *Service {
	return &Service{store: store}
}

// Data returns every Dati row as {comune, sezione, values}
func (s *Service) Data(ctx context.Context) ([]Row, error) {
	rows, err := s.store.Read(ctx, sheets.RangeDati)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		projected := Row{
			Comune:  cell(row, datiComuneCol),
			Sezione: cell(row, datiSezioneCol),
			Values:  []string{},
		}
		if len(row) > datiValuesCol {
			projected.Values = append([]string(nil), row[datiValuesCol:]...)
		}
		out = append(out, projected)
	}
	return out, nil
}

// Sections returns the full section registry
func (s *Service) Sections(ctx context.Context) ([]SectionInfo, error) {
	rows, err := s.store.Read(ctx, sheets.RangeSezioni)
	if err != nil {
		return nil, err
	}
	out := make([]SectionInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, SectionInfo{
			Comune:    cell(row, sezioniComuneCol),
			Sezione:   cell(row, sezioniNumberCol),
			Municipio: cell(row, sezioniMunicipioCol),
		})
	}
	return out, nil
}

func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
