package hierarchy

import (
	"sort"
	"strings"
)

// Suggest ranks candidates by how many query tokens appear in their name.
//
// Both sides are lowercased, so "ANA" and "ana" rank the same: the query is
// split on whitespace and each token contributes 1 when it is a substring of
// the lowercased name, no matter how often it occurs. Candidates scoring 0 or listed in exclude are dropped. Equal scores
// keep their input order.
func Suggest(query string, candidates []Person, exclude map[string]struct{}) []Person {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return []Person{}
	}

	type scored struct {
		person Person
		score  int
	}
	var hits []scored
	for _, c := range candidates {
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		name := strings.ToLower(c.Name)
		score := 0
		for _, tok := range tokens {
			if strings.Contains(name, tok) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{person: c, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]Person, len(hits))
	for i, h := range hits {
		out[i] = h.person
	}
	return out
}

// ExcludeIDs builds an exclusion set for Suggest.
func ExcludeIDs(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// ExcludeAssigned returns the ids of people already holding a tier.
func ExcludeAssigned(people []Person) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range people {
		if p.Tier.Restricted() {
			set[p.ID] = struct{}{}
		}
	}
	return set
}
