// Package reconcile classifies observed rows against the known roster.
package reconcile

import (
	"sort"
	"strings"

	"callwatch_roster/internal/callwatch"
)

// Membership answers whether a radio ID is already on the main roster.
type Membership interface {
	Contains(id int) bool
}

// Rules holds the classification predicates. A row belongs to the group of
// interest when its group label equals or contains any configured token; it
// belongs to the network of interest when its network label matches exactly.
type Rules struct {
	GroupTokens []string
	Network     string
}

func (r Rules) matchGroup(group string) bool {
	for _, tok := range r.GroupTokens {
		if tok != "" && (group == tok || strings.Contains(group, tok)) {
			return true
		}
	}
	return false
}

// Result carries the two classification outputs. Both slices are
// duplicate-free and sorted ascending so downstream processing is
// deterministic.
type Result struct {
	NewIDs   []int
	GroupIDs []int
}

// Classify walks the observed rows once. Group and network checks are
// independent: a single row may land its ID in both sets. IDs already on the
// roster never enter NewIDs. The roster is only read, never mutated.
func Classify(rows []callwatch.Row, known Membership, rules Rules) Result {
	newIDs := make(map[int]struct{})
	groupIDs := make(map[int]struct{})
	for _, row := range rows {
		if rules.matchGroup(row.Group) {
			groupIDs[row.RadioID] = struct{}{}
			if !known.Contains(row.RadioID) {
				newIDs[row.RadioID] = struct{}{}
			}
		}
		if rules.Network != "" && row.Network == rules.Network {
			if !known.Contains(row.RadioID) {
				newIDs[row.RadioID] = struct{}{}
			}
		}
	}
	return Result{NewIDs: sortedIDs(newIDs), GroupIDs: sortedIDs(groupIDs)}
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
