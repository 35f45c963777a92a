package search

import (
	"sort"

	"github.com/hazyhaar/electoral-roll/pkg/voter"
)

// Facets lists the distinct values available to each filter dropdown.
type Facets struct {
	BoothNumbers            []string `json:"boothNumbers"`
	PollingStationAddresses []string `json:"pollingStationAddresses"`
	Villages                []string `json:"villages"`
}

// ExtractFacets collects distinct non-empty values from the full collection,
// each sorted lexicographically. Callers pass the unfiltered collection so a
// chosen filter never hides its alternatives.
func ExtractFacets(all []voter.Voter) Facets {
	booths := make(map[string]struct{})
	addrs := make(map[string]struct{})
	villages := make(map[string]struct{})
	for _, v := range all {
		if v.BoothNumber != "" {
			booths[v.BoothNumber] = struct{}{}
		}
		if v.PollingStationAddress != "" {
			addrs[v.PollingStationAddress] = struct{}{}
		}
		if v.Village != "" {
			villages[v.Village] = struct{}{}
		}
	}
	return Facets{
		BoothNumbers:            sortedKeys(booths),
		PollingStationAddresses: sortedKeys(addrs),
		Villages:                sortedKeys(villages),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
