package cleaning

import (
	"fmt"
	"strconv"
	"strings"

	"gapfill/domain/core"
	"gapfill/domain/series"
)

// Rule marks physically impossible readings in one column as missing.
// A reading strictly below Below or strictly above Above is flagged.
type Rule struct {
	Column string
	Below  *float64
	Above  *float64
}

// Matches reports whether v violates the rule
func (r Rule) Matches(v float64) bool {
	if series.IsMissing(v) {
		return false
	}
	if r.Below != nil && v < *r.Below {
		return true
	}
	return r.Above != nil && v > *r.Above
}

func (r Rule) String() string {
	var parts []string
	if r.Below != nil {
		parts = append(parts, fmt.Sprintf("%s<%g", r.Column, *r.Below))
	}
	if r.Above != nil {
		parts = append(parts, fmt.Sprintf("%s>%g", r.Column, *r.Above))
	}
	return strings.Join(parts, ";")
}

// ParseRules parses a semicolon separated list such as
// "SWTP Total Influent Flow<3.7;Rainfall (in)>12". Rules for the same
// column are merged.
func ParseRules(spec string) ([]Rule, error) {
	var rules []Rule
	index := make(map[string]int)

	for _, raw := range strings.Split(spec, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		op := strings.LastIndexAny(raw, "<>")
		if op <= 0 || op == len(raw)-1 {
			return nil, fmt.Errorf("invalid sentinel rule %q: expected <column><op><number>", raw)
		}
		column := strings.TrimSpace(raw[:op])
		limit, err := strconv.ParseFloat(strings.TrimSpace(raw[op+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sentinel rule %q: %w", raw, err)
		}

		i, ok := index[column]
		if !ok {
			rules = append(rules, Rule{Column: column})
			i = len(rules) - 1
			index[column] = i
		}
		if raw[op] == '<' {
			rules[i].Below = &limit
		} else {
			rules[i].Above = &limit
		}
	}
	return rules, nil
}

// Summary counts the readings flagged per column
type Summary struct {
	Flagged map[string]int
}

// Total returns the number of readings flagged across columns
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Flagged {
		n += c
	}
	return n
}

// Apply replaces every reading that violates a rule with the missing
// marker. All rule columns are resolved before anything is changed.
func Apply(table *series.Table, rules []Rule) (Summary, error) {
	summary := Summary{Flagged: make(map[string]int, len(rules))}

	columns := make([]*series.Column, len(rules))
	for i, rule := range rules {
		col, err := table.Column(rule.Column)
		if err != nil {
			return summary, err
		}
		if !col.IsNumeric() {
			return summary, core.NewMalformedInputError(fmt.Sprintf("sentinel rule on non-numeric column %q", rule.Column))
		}
		columns[i] = col
	}

	for i, rule := range rules {
		values := columns[i].Values
		for j, v := range values {
			if rule.Matches(v) {
				values[j] = series.Missing()
				summary.Flagged[rule.Column]++
			}
		}
	}
	return summary, nil
}
