package ingress

import (
	"strings"

	"github.com/lexfrei/midgard/internal/fault"
)

// Table is the ordered ingress rule sequence. The zero value is an empty
// table. Mutating operations return a new Table and leave the receiver
// unchanged, so a failed insert never corrupts the fetched state.
type Table struct {
	rules []Rule
}

// NewTable builds a table from rules, preserving their order.
func NewTable(rules []Rule) Table {
	return Table{rules: rules}
}

// Rules returns a copy of the rule sequence in evaluation order.
func (t Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)

	return out
}

// Len returns the number of rules, catch-all included.
func (t Table) Len() int {
	return len(t.rules)
}

// Insert normalizes hostname against domain and prepends a new rule for
// service, preserving the relative order of all existing entries. The rule
// lands at the head because the remote matcher is first-match-wins and the
// newest mapping must take precedence.
//
// It fails with a conflict when any existing non-catch-all entry's hostname
// contains the normalized candidate as a substring. The check is literal
// containment, one direction only; exact duplicates are a special case.
func (t Table) Insert(service, hostname, domain string, origin *OriginRequest) (Table, error) {
	normalized := NormalizeHostname(hostname, domain)

	for _, rule := range t.rules {
		if IsCatchAll(rule) {
			continue
		}

		if strings.Contains(rule.Hostname, normalized) {
			return t, fault.Newf(fault.KindConflict,
				"hostname %s collides with existing rule for %s", normalized, rule.Hostname)
		}
	}

	next := make([]Rule, 0, len(t.rules)+1)
	next = append(next, Rule{
		Hostname:      normalized,
		Service:       service,
		OriginRequest: origin,
	})
	next = append(next, t.rules...)

	return Table{rules: next}, nil
}

// EnsureCatchAll moves any catch-all rules out of the sequence and appends a
// single catch-all at the end.
func (t Table) EnsureCatchAll() Table {
	filtered := make([]Rule, 0, len(t.rules)+1)

	for _, rule := range t.rules {
		if !IsCatchAll(rule) {
			filtered = append(filtered, rule)
		}
	}

	filtered = append(filtered, Rule{Service: CatchAllService})

	return Table{rules: filtered}
}
