// Package version parses version triples and the version-range rules used by
// the route catalog.
package version

import (
	"fmt"
	"regexp"
	"strconv"
)

var tripleRe = regexp.MustCompile(`^\s*(\d+)\.(\d+)\.(\d+)`)

// Triple is a major.minor.patch version.
type Triple struct {
	Major int
	Minor int
	Patch int
}

// Parse returns the triple at the start of s. Anything that does not begin
// with three dotted integers parses to 0.0.0, which sorts before every real
// version.
func Parse(s string) Triple {
	t, _ := ParseStrict(s)
	return t
}

// ParseStrict is Parse that also reports whether s held a usable triple.
func ParseStrict(s string) (Triple, bool) {
	m := tripleRe.FindStringSubmatch(s)
	if m == nil {
		return Triple{}, false
	}
	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Triple{}, false
		}
		parts[i] = n
	}
	return Triple{Major: parts[0], Minor: parts[1], Patch: parts[2]}, true
}

// Compare returns -1, 0 or 1 when t is lower than, equal to or greater than o.
func (t Triple) Compare(o Triple) int {
	switch {
	case t.Major != o.Major:
		return cmpInt(t.Major, o.Major)
	case t.Minor != o.Minor:
		return cmpInt(t.Minor, o.Minor)
	default:
		return cmpInt(t.Patch, o.Patch)
	}
}

func (t Triple) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
