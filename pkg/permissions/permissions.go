// Package permissions resolves the capability flags of an authenticated
// email by scanning the reference ranges of the spreadsheet.
//
// # Overview
//
// Three boolean capabilities exist:
//
//   - kpi: the email appears in the KPI reference range
//   - referenti: the email appears in the Referenti range
//   - sections: referenti, or the email is assigned to a section in Dati
//
// All matching is case-insensitive. Results are cached per email behind an
// injected Cache so the TTL policy is explicit and tests can disable it.
package permissions

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/elettorale/seggio/pkg/observability"
	"github.com/elettorale/seggio/pkg/sheets"
)

// Column positions inside the reference ranges. Referenti rows are
// (email, comune, municipio); Dati rows are (comune, sezione, email, ...);
// KPI rows carry the email in the first column.
const (
	referentiEmailCol = 0
	datiEmailCol      = 2
	kpiEmailCol       = 0
)

// Capabilities are the per-email permission flags
type Capabilities struct {
	Sections  bool `json:"sections"`
	Referenti bool `json:"referenti"`
	KPI       bool `json:"kpi"`
}

// Resolver resolves capabilities for an email
type Resolver interface {
	Resolve(ctx context.Context, email string) (Capabilities, error)
}

// SheetResolver resolves capabilities from the spreadsheet, caching results
// per email in the injected Cache.
type SheetResolver struct {
	store   sheets.Store
	cache   Cache
	metrics *observability.Metrics
}

// NewSheetResolver creates a resolver. metrics may be nil.
func NewSheetResolver(store sheets.Store, cache Cache, metrics *observability.Metrics) *SheetResolver {
	if cache == nil {
		cache = NopCache{}
	}
	return &SheetResolver{
		store:   store,
		cache:   cache,
		metrics: metrics,
	}
}

// Resolve returns the capabilities for an email. Cached entries are served
// until their TTL expires; a stale entry means at most transient visibility
// lag, never data loss, since the spreadsheet stays the source of truth.
func (r *SheetResolver) Resolve(ctx context.Context, email string) (Capabilities, error) {
	key := strings.ToLower(email)

	if caps, ok := r.cache.Get(ctx, key); ok {
		if r.metrics != nil {
			r.metrics.PermissionCacheHitsTotal.Inc()
		}
		return caps, nil
	}
	if r.metrics != nil {
		r.metrics.PermissionCacheMissesTotal.Inc()
	}

	caps, err := r.lookup(ctx, email)
	if err != nil {
		return Capabilities{}, err
	}

	r.cache.Set(ctx, key, caps)
	return caps, nil
}

// lookup scans the three reference ranges. The reads are independent, so
// they are issued in parallel.
func (r *SheetResolver) lookup(ctx context.Context, email string) (Capabilities, error) {
	var kpi, referente, assigned bool

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.store.Read(ctx, sheets.RangeKPI)
		if err != nil {
			return err
		}
		kpi = containsEmail(rows, kpiEmailCol, email)
		return nil
	})
	g.Go(func() error {
		rows, err := r.store.Read(ctx, sheets.RangeReferenti)
		if err != nil {
			return err
		}
		referente = containsEmail(rows, referentiEmailCol, email)
		return nil
	})
	g.Go(func() error {
		rows, err := r.store.Read(ctx, sheets.RangeDati)
		if err != nil {
			return err
		}
		assigned = containsEmail(rows, datiEmailCol, email)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Capabilities{}, err
	}

	return Capabilities{
		Sections:  referente || assigned,
		Referenti: referente,
		KPI:       kpi,
	}, nil
}

func containsEmail(rows [][]string, col int, email string) bool {
	for _, row := range rows {
		if col < len(row) && strings.EqualFold(strings.TrimSpace(row[col]), email) {
			return true
		}
	}
	return false
}
