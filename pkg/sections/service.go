package sections

import (
	"context"
	"fmt"
	"strings"

	"github.com/elettorale/seggio/pkg/audit"
	"github.com/elettorale/seggio/pkg/contextkeys"
	"github.com/elettorale/seggio/pkg/observability"
	"github.com/elettorale/seggio/pkg/permissions"
	"github.com/elettorale/seggio/pkg/sheets"
)

// Service implements visibility resolution and assignment mutation
type Service struct {
	store    sheets.Store
	resolver permissions.Resolver
	auditor  audit.Recorder
	metrics  *observability.Metrics
}

// NewService creates a section service. auditor and metrics may be nil.
func NewService(store sheets.Store, resolver permissions.Resolver, auditor audit.Recorder, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		auditor:  auditor,
		metrics:  metrics,
	}
}

// VisibleSections computes the sections the email may administer: the join
// of the caller's Referenti rows with Sezioni on (comune, municipio).
// A nested-loop join is fine at these sizes (low thousands of rows).
func (s *Service) VisibleSections(ctx context.Context, email string) ([]Section, error) {
	referenti, err := s.store.Read(ctx, sheets.RangeReferenti)
	if err != nil {
		return nil, err
	}

	type scope struct{ comune, municipio string }
	var scopes []scope
	for _, row := range referenti {
		if strings.EqualFold(strings.TrimSpace(cell(row, referentiEmailCol)), email) {
			scopes = append(scopes, scope{
				comune:    cell(row, referentiComuneCol),
				municipio: cell(row, referentiMunicipioCol),
			})
		}
	}
	if len(scopes) == 0 {
		return nil, nil
	}

	sezioni, err := s.store.Read(ctx, sheets.RangeSezioni)
	if err != nil {
		return nil, err
	}

	var visible []Section
	for _, row := range sezioni {
		comune := cell(row, sezioniComuneCol)
		municipio := cell(row, sezioniMunicipioCol)
		for _, sc := range scopes {
			if strings.EqualFold(comune, sc.comune) && strings.EqualFold(municipio, sc.municipio) {
				visible = append(visible, Section{
					Comune:    comune,
					Sezione:   cell(row, sezioniNumberCol),
					Municipio: municipio,
				})
				break
			}
		}
	}
	return visible, nil
}

// Assign writes target as the RDL of (comune, sezione). The row is appended
// when missing; otherwise only the email cell changes, preserving KPI
// columns. Idempotent.
func (s *Service) Assign(ctx context.Context, caller, comune, sezione, target string) error {
	if err := s.authorize(ctx, caller, comune, sezione, audit.EventTypeAssign); err != nil {
		s.countAssignment("assign", "denied")
		return err
	}

	rows, err := s.store.Read(ctx, sheets.RangeDati)
	if err != nil {
		s.countAssignment("assign", "error")
		return err
	}

	idx := findRow(rows, comune, sezione)
	if idx < 0 {
		err = s.store.Append(ctx, sheets.RangeDati, []string{comune, sezione, target})
	} else {
		err = s.store.UpdateRow(ctx, sheets.RangeDati, idx, datiEmailCol, []string{target})
	}
	if err != nil {
		s.countAssignment("assign", "error")
		return err
	}

	s.countAssignment("assign", "success")
	s.record(ctx, audit.Event{
		Type:    audit.EventTypeAssign,
		Status:  audit.StatusSuccess,
		Actor:   caller,
		Target:  target,
		Comune:  comune,
		Sezione: sezione,
	})
	return nil
}

// Unassign clears the RDL email of (comune, sezione). The row itself is
// kept so KPI data in later columns survives.
func (s *Service) Unassign(ctx context.Context, caller, comune, sezione string) error {
	if err := s.authorize(ctx, caller, comune, sezione, audit.EventTypeUnassign); err != nil {
		s.countAssignment("unassign", "denied")
		return err
	}

	rows, err := s.store.Read(ctx, sheets.RangeDati)
	if err != nil {
		s.countAssignment("unassign", "error")
		return err
	}

	idx := findRow(rows, comune, sezione)
	if idx < 0 {
		s.countAssignment("unassign", "not_found")
		return fmt.Errorf("%w: no assignment for %s/%s", ErrNotFound, comune, sezione)
	}

	if err := s.store.UpdateRow(ctx, sheets.RangeDati, idx, datiEmailCol, []string{""}); err != nil {
		s.countAssignment("unassign", "error")
		return err
	}

	s.countAssignment("unassign", "success")
	s.record(ctx, audit.Event{
		Type:    audit.EventTypeUnassign,
		Status:  audit.StatusSuccess,
		Actor:   caller,
		Comune:  comune,
		Sezione: sezione,
	})
	return nil
}

// AssignedEmails returns every email assigned within the caller's visible
// sections, plus the caller's own address.
func (s *Service) AssignedEmails(ctx context.Context, caller string) ([]string, error) {
	if err := s.requireReferente(ctx, caller); err != nil {
		return nil, err
	}

	visible, err := s.VisibleSections(ctx, caller)
	if err != nil {
		return nil, err
	}
	visibleKeys := sectionKeys(visible)

	rows, err := s.store.Read(ctx, sheets.RangeDati)
	if err != nil {
		return nil, err
	}

	seen := map[string]string{strings.ToLower(caller): caller}
	for _, row := range rows {
		email := strings.TrimSpace(cell(row, datiEmailCol))
		if email == "" {
			continue
		}
		if !visibleKeys[sectionKey(cell(row, datiComuneCol), cell(row, datiSezioneCol))] {
			continue
		}
		if _, ok := seen[strings.ToLower(email)]; !ok {
			seen[strings.ToLower(email)] = email
		}
	}

	emails := make([]string, 0, len(seen))
	for _, email := range seen {
		emails = append(emails, email)
	}
	sortEmails(emails)
	return emails, nil
}

// SectionLists splits the caller's visible sections into assigned and
// unassigned, each sorted by (comune, sezione).
func (s *Service) SectionLists(ctx context.Context, caller string) (*Lists, error) {
	if err := s.requireReferente(ctx, caller); err != nil {
		return nil, err
	}

	visible, err := s.VisibleSections(ctx, caller)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Read(ctx, sheets.RangeDati)
	if err != nil {
		return nil, err
	}

	assignedBy := make(map[string]string)
	for _, row := range rows {
		email := strings.TrimSpace(cell(row, datiEmailCol))
		if email == "" {
			continue
		}
		assignedBy[sectionKey(cell(row, datiComuneCol), cell(row, datiSezioneCol))] = email
	}

	lists := &Lists{
		Assigned:   []Assignment{},
		Unassigned: []Section{},
	}
	for _, section := range visible {
		if email, ok := assignedBy[sectionKey(section.Comune, section.Sezione)]; ok {
			lists.Assigned = append(lists.Assigned, Assignment{
				Comune:  section.Comune,
				Sezione: section.Sezione,
				Email:   email,
			})
		} else {
			lists.Unassigned = append(lists.Unassigned, Section{
				Comune:  section.Comune,
				Sezione: section.Sezione,
			})
		}
	}

	sortAssignments(lists.Assigned)
	sortSections(lists.Unassigned)
	return lists, nil
}

// OwnRows returns the Dati rows assigned to the caller, including any KPI
// columns already recorded.
func (s *Service) OwnRows(ctx context.Context, caller string) ([]Assignment, error) {
	rows, err := s.store.Read(ctx, sheets.RangeDati)
	if err != nil {
		return nil, err
	}

	own := []Assignment{}
	for _, row := range rows {
		if !strings.EqualFold(strings.TrimSpace(cell(row, datiEmailCol)), caller) {
			continue
		}
		assignment := Assignment{
			Comune:  cell(row, datiComuneCol),
			Sezione: cell(row, datiSezioneCol),
			Email:   cell(row, datiEmailCol),
		}
		if len(row) > datiExtraCol {
			assignment.Extra = append([]string(nil), row[datiExtraCol:]...)
		}
		own = append(own, assignment)
	}
	sortAssignments(own)
	return own, nil
}

// UpdateOwnRow writes the extra (KPI) columns of the caller's own row.
// The row must exist and belong to the caller.
func (s *Service) UpdateOwnRow(ctx context.Context, caller, comune, sezione string, values []string) error {
	rows, err := s.store.Read(ctx, sheets.RangeDati)
	if err != nil {
		return err
	}

	idx := findRow(rows, comune, sezione)
	if idx < 0 || !strings.EqualFold(strings.TrimSpace(cell(rows[idx], datiEmailCol)), caller) {
		return fmt.Errorf("%w: no assignment for %s/%s owned by caller", ErrNotFound, comune, sezione)
	}

	if err := s.store.UpdateRow(ctx, sheets.RangeDati, idx, datiExtraCol, values); err != nil {
		return err
	}

	s.record(ctx, audit.Event{
		Type:    audit.EventTypeSectionUpdate,
		Status:  audit.StatusSuccess,
		Actor:   caller,
		Comune:  comune,
		Sezione: sezione,
	})
	return nil
}

// authorize enforces the referenti capability and visibility over the
// target section, recording denied attempts.
func (s *Service) authorize(ctx context.Context, caller, comune, sezione string, op audit.EventType) error {
	if err := s.requireReferente(ctx, caller); err != nil {
		s.record(ctx, audit.Event{
			Type:    audit.EventTypeDenied,
			Status:  audit.StatusDenied,
			Actor:   caller,
			Comune:  comune,
			Sezione: sezione,
			Message: string(op),
		})
		return err
	}

	visible, err := s.VisibleSections(ctx, caller)
	if err != nil {
		return err
	}
	if !sectionKeys(visible)[sectionKey(comune, sezione)] {
		s.record(ctx, audit.Event{
			Type:    audit.EventTypeDenied,
			Status:  audit.StatusDenied,
			Actor:   caller,
			Comune:  comune,
			Sezione: sezione,
			Message: string(op),
		})
		return fmt.Errorf("%w: section %s/%s not visible to caller", ErrForbidden, comune, sezione)
	}
	return nil
}

func (s *Service) requireReferente(ctx context.Context, caller string) error {
	caps, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return err
	}
	if !caps.Referenti {
		return fmt.Errorf("%w: referenti capability required", ErrForbidden)
	}
	return nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = contextkeys.RequestID(ctx)
	s.auditor.Record(event)
}

func (s *Service) countAssignment(operation, status string) {
	if s.metrics != nil {
		s.metrics.AssignmentsTotal.WithLabelValues(operation, status).Inc()
	}
}

// findRow locates the Dati row for (comune, sezione) by exact equality
func findRow(rows [][]string, comune, sezione string) int {
	for i, row := range rows {
		if cell(row, datiComuneCol) == comune && cell(row, datiSezioneCol) == sezione {
			return i
		}
	}
	return -1
}

func sectionKey(comune, sezione string) string {
	return strings.ToLower(comune) + "\x00" + sezione
}

func sectionKeys(sections []Section) map[string]bool {
	keys := make(map[string]bool, len(sections))
	for _, section := range sections {
		keys[sectionKey(section.Comune, section.Sezione)] = true
	}
	return keys
}
