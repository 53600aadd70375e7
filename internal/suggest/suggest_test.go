package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"schedule commands in catalogue order", "sch", []string{"generate schedule", "show schedule"}},
		{"too short", "xy", []string{}},
		{"empty", "", []string{}},
		{"case insensitive", "MATH", []string{`add subject "Math" hours 10 priority HIGH`}},
		{"single character", "s", []string{}},
		{"subject commands", "sub", []string{`add subject "Math" hours 10 priority HIGH`, "list subjects"}},
		{"show commands", "show", []string{"show schedule", "show history"}},
		{"raw input is not trimmed", "  sh", []string{}},
		{"leading space is part of the needle", " cl", []string{}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.input))
		})
	}
}

func TestSuggestTruncatesToThree(t *testing.T) {
	e := New([]string{"show a", "show b", "show c", "show d"})
	assert.Equal(t, []string{"show a", "show b", "show c"}, e.Suggest("show"))
}

func TestEngineCopiesCatalogue(t *testing.T) {
	src := []string{"list subjects"}
	e := New(src)
	src[0] = "mutated"
	assert.Equal(t, []string{"list subjects"}, e.Catalogue())
	assert.Equal(t, []string{"list subjects"}, e.Suggest("sub"))
}

func TestSuggestCountsCharactersNotBytes(t *testing.T) {
	e := New([]string{"café au lait", "crème brûlée"})
	assert.Equal(t, []string{}, e.Suggest("é "))
	assert.Equal(t, []string{}, e.Suggest("èm"))
	assert.Equal(t, []string{"café au lait"}, e.Suggest("fé "))
	assert.Equal(t, []string{"crème brûlée"}, e.Suggest("RÈM"))
}
