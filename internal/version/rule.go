package version

import (
	"regexp"
	"strings"
	"unicode"
)

// Op is a comparison operator in a version rule.
type Op string

// Supported operators.
const (
	OpGE Op = ">="
	OpGT Op = ">"
	OpLE Op = "<="
	OpLT Op = "<"
	OpEQ Op = "="
)

// Two-character operators come first in the alternation so ">=" is never
// read as ">" followed by a stray "=".
var conditionRe = regexp.MustCompile(`(>=|<=|>|<|=)\s*(\d+\.\d+\.\d+)`)

// Condition is one "<op><version>" term of a rule.
type Condition struct {
	Op      Op
	Version Triple
}

// Holds reports whether v satisfies the condition.
func (c Condition) Holds(v Triple) bool {
	cmp := v.Compare(c.Version)
	switch c.Op {
	case OpGE:
		return cmp >= 0
	case OpGT:
		return cmp > 0
	case OpLE:
		return cmp <= 0
	case OpLT:
		return cmp < 0
	case OpEQ:
		return cmp == 0
	}
	return false
}

func (c Condition) String() string {
	return string(c.Op) + c.Version.String()
}

// Rule is a conjunction of conditions. A rule without conditions never
// matches. Rules are not modified after ParseRule returns them.
type Rule struct {
	source     string
	conditions []Condition
	malformed  bool
}

// ParseRule extracts every condition found in text. It never fails: text
// without any recognizable condition yields an empty rule. Text outside the
// extracted conditions, other than whitespace and commas, marks the rule as
// malformed, as does a version whose parts overflow an int. Such a condition
// is dropped rather than evaluated as 0.0.0.
func ParseRule(text string) Rule {
	r := Rule{source: strings.TrimSpace(text)}
	for _, m := range conditionRe.FindAllStringSubmatch(text, -1) {
		v, ok := ParseStrict(m[2])
		if !ok {
			r.malformed = true
			continue
		}
		r.conditions = append(r.conditions, Condition{Op: Op(m[1]), Version: v})
	}
	rest := conditionRe.ReplaceAllString(text, "")
	if strings.TrimFunc(rest, isSeparator) != "" {
		r.malformed = true
	}
	return r
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// Matches reports whether every condition holds for v.
func (r Rule) Matches(v Triple) bool {
	if len(r.conditions) == 0 {
		return false
	}
	for _, c := range r.conditions {
		if !c.Holds(v) {
			return false
		}
	}
	return true
}

// Empty reports whether the rule has no conditions.
func (r Rule) Empty() bool {
	return len(r.conditions) == 0
}

// Malformed reports whether part of the rule text could not be read as a
// condition. The remaining conditions are still evaluated.
func (r Rule) Malformed() bool {
	return r.malformed
}

// Conditions returns a copy of the parsed conditions.
func (r Rule) Conditions() []Condition {
	out := make([]Condition, len(r.conditions))
	copy(out, r.conditions)
	return out
}

// String returns the rule text as it was written.
func (r Rule) String() string {
	return r.source
}
