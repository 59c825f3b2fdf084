package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareSezione(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"numeric order", "2", "10", -1},
		{"numeric equal", "7", "7", 0},
		{"numeric with whitespace", " 2 ", "10", -1},
		{"lexical fallback when one side is not a number", "2bis", "10", 1},
		{"lexical fallback both non-numeric", "A", "B", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareSezione(tt.a, tt.b))
		})
	}
}

func TestSortSections(t *testing.T) {
	sections := []Section{
		{Comune: "ROMA", Sezione: "10"},
		{Comune: "Milano", Sezione: "1"},
		{Comune: "ROMA", Sezione: "2"},
	}

	sortSections(sections)

	assert.Equal(t, []Section{
		{Comune: "Milano", Sezione: "1"},
		{Comune: "ROMA", Sezione: "2"},
		{Comune: "ROMA", Sezione: "10"},
	}, sections)
}

func TestSortAssignments(t *testing.T) {
	assignments := []Assignment{
		{Comune: "roma", Sezione: "3", Email: "c@z.com"},
		{Comune: "Roma", Sezione: "1", Email: "a@x.com"},
	}

	sortAssignments(assignments)

	assert.Equal(t, "1", assignments[0].Sezione)
	assert.Equal(t, "3", assignments[1].Sezione)
}

func TestSortEmails(t *testing.T) {
	emails := []string{"Z@x.com", "a@x.com", "B@y.com"}

	sortEmails(emails)

	assert.Equal(t, []string{"a@x.com", "B@y.com", "Z@x.com"}, emails)
}
