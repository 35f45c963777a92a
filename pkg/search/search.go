// Package search is the voter query engine: multi-term text search, per-field
// filters, facet extraction, sorting and pagination over an in-memory
// collection. Everything here is a pure function of its inputs.
package search

import (
	"strings"

	"github.com/hazyhaar/electoral-roll/pkg/voter"
)

// Filter keys recognized by Filters. Other keys are ignored.
const (
	FilterBoothNumber           = voter.FieldBoothNumber
	FilterPollingStationAddress = voter.FieldPollingStationAddress
	FilterVillage               = voter.FieldVillage
)

// Filters maps a filter key to its value. An empty value means no
// constraint on that field.
type Filters map[string]string

// Merge returns a new Filters holding f overlaid with other. Non-empty values
// in other win.
func (f Filters) Merge(other Filters) Filters {
	out := make(Filters, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Matcher is a compiled search term.
type Matcher struct {
	tokens []string
}

// NewMatcher splits term on whitespace runs and lower-cases each token.
func NewMatcher(term string) Matcher {
	fields := strings.Fields(term)
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = strings.ToLower(f)
	}
	return Matcher{tokens: tokens}
}

// Match reports whether every token is a substring of the voter's lower-cased
// name and voter ID. A matcher with no tokens matches everything.
func (m Matcher) Match(v voter.Voter) bool {
	if len(m.tokens) == 0 {
		return true
	}
	hay := strings.ToLower(v.Name + " " + v.VoterID)
	for _, tok := range m.tokens {
		if !strings.Contains(hay, tok) {
			return false
		}
	}
	return true
}

// Matches is the one-shot form of NewMatcher(term).Match(v).
func Matches(v voter.Voter, term string) bool {
	return NewMatcher(term).Match(v)
}

// Passes reports whether v satisfies every recognized, non-empty filter.
// Booth numbers match by substring as stored; addresses and villages match
// by case-insensitive substring.
func Passes(v voter.Voter, f Filters) bool {
	if b := f[FilterBoothNumber]; b != "" && !strings.Contains(v.BoothNumber, b) {
		return false
	}
	if a := f[FilterPollingStationAddress]; a != "" && !containsFold(v.PollingStationAddress, a) {
		return false
	}
	if vil := f[FilterVillage]; vil != "" && !containsFold(v.Village, vil) {
		return false
	}
	return true
}

// Filter returns the voters matching term and passing f, in input order. The
// input slice is never modified.
func Filter(all []voter.Voter, term string, f Filters) []voter.Voter {
	m := NewMatcher(term)
	out := make([]voter.Voter, 0, len(all))
	for _, v := range all {
		if m.Match(v) && Passes(v, f) {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
