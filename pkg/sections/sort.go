package sections

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// compareSezione orders section numbers numerically when both values parse
// as integers, falling back to plain string order otherwise. Comparing mixed
// string/number values with subtraction is how the previous implementation
// ended up with unstable orderings.
func compareSezione(a, b string) int {
	na, errA := strconv.Atoi(strings.TrimSpace(a))
	nb, errB := strconv.Atoi(strings.TrimSpace(b))
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// newComuneCollator builds an Italian-locale, case-insensitive collator.
// Collators are not safe for concurrent use, so one is created per sort.
func newComuneCollator() *collate.Collator {
	return collate.New(language.Italian, collate.IgnoreCase)
}

func sortSections(sections []Section) {
	c := newComuneCollator()
	sort.SliceStable(sections, func(i, j int) bool {
		if cmp := c.CompareString(sections[i].Comune, sections[j].Comune); cmp != 0 {
			return cmp < 0
		}
		return compareSezione(sections[i].Sezione, sections[j].Sezione) < 0
	})
}

func sortAssignments(assignments []Assignment) {
	c := newComuneCollator()
	sort.SliceStable(assignments, func(i, j int) bool {
		if cmp := c.CompareString(assignments[i].Comune, assignments[j].Comune); cmp != 0 {
			return cmp < 0
		}
		return compareSezione(assignments[i].Sezione, assignments[j].Sezione) < 0
	})
}

func sortEmails(emails []string) {
	sort.Slice(emails, func(i, j int) bool {
		return strings.ToLower(emails[i]) < strings.ToLower(emails[j])
	})
}
