// Package election serves the label ranges of the current election:
// the competing lists and their candidates.
package election

import (
	"context"

	"github.com/elettorale/seggio/pkg/sheets"
)

// Service reads the Liste and Candidati ranges. The values are
// presentation labels only; no structure beyond the raw rows is assumed.
type Service struct {
	store sheets.Store
}

func NewService(store sheets.Store) *Service {
	return &Service{store: store}
}

// Lists returns the rows of the Liste range.
func (s *Service) Lists(ctx context.Context) ([][]string, error) {
	return s.read(ctx, sheets.RangeListe)
}

// Candidates returns the rows of the Candidati range.
func (s *Service) Candidates(ctx context.Context) ([][]string, error) {
	return s.read(ctx, sheets.RangeCandidati)
}

func (s *Service) read(ctx context.Context, rangeName string) ([][]string, error) {
	rows, err := s.store.Read(ctx, rangeName)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, nil
}
