package clean

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

type ruleKind int

const (
	ruleExact ruleKind = iota
	rulePredicate
)

// Rule rewrites matching cells of a String column to a canonical value.
// Build rules with Exact or Predicate.
type Rule struct {
	kind        ruleKind
	value       string
	match       func(string) bool
	Replacement string
}

// Exact matches cells equal to value.
func Exact(value, replacement string) Rule {
	return Rule{kind: ruleExact, value: value, Replacement: replacement}
}

// Predicate matches cells for which match reports true. match must be safe
// for concurrent use.
func Predicate(match func(string) bool, replacement string) Rule {
	return Rule{kind: rulePredicate, match: match, Replacement: replacement}
}

// Matches reports whether the rule applies to s.
func (r Rule) Matches(s string) bool {
	if r.kind == ruleExact {
		return s == r.value
	}
	return r.match != nil && r.match(s)
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold matches strings containing substr under Unicode case folding.
func ContainsFold(substr string) func(string) bool {
	needle := fold(substr)
	return func(s string) bool {
		return strings.Contains(fold(s), needle)
	}
}

// HasPrefixFold matches strings starting with prefix under Unicode case
// folding.
func HasPrefixFold(prefix string) func(string) bool {
	needle := fold(prefix)
	return func(s string) bool {
		return strings.HasPrefix(fold(s), needle)
	}
}

// MatchRegexp matches strings against a regular expression.
func MatchRegexp(expr string) (func(string) bool, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}
