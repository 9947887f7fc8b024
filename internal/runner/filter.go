package runner

import (
	"strings"

	"github.com/pengelbrecht/tally/internal/feature"
)

// Filter selects scenarios by tag. A scenario is selected when it has at
// least one Include tag (or Include is empty) and none of the Exclude tags.
type Filter struct {
	Include []string
	Exclude []string
}

// ParseTags builds a Filter from an expression like "@add,~@slow". Tags may be
// separated by commas or spaces; a leading "~" or "!" excludes.
func ParseTags(expr string) Filter {
	var f Filter
	fields := strings.FieldsFunc(expr, func(r rune) bool { return r == ',' || r == ' ' })
	for _, field := range fields {
		exclude := false
		if strings.HasPrefix(field, "~") || strings.HasPrefix(field, "!") {
			exclude = true
			field = field[1:]
		}
		field = "@" + strings.TrimPrefix(field, "@")
		if field == "@" {
			continue
		}
		if exclude {
			f.Exclude = append(f.Exclude, field)
		} else {
			f.Include = append(f.Include, field)
		}
	}
	return f
}

// Empty reports whether the filter selects everything.
func (f Filter) Empty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Match reports whether s is selected.
func (f Filter) Match(s feature.Scenario) bool {
	for _, tag := range f.Exclude {
		if s.HasTag(tag) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, tag := range f.Include {
		if s.HasTag(tag) {
			return true
		}
	}
	return false
}
