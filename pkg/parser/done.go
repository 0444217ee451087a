package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// doneIndexRe matches strict positive-integer literals: no sign, no leading
// zero. Anything else is searched as text, which keeps numeric-looking
// descriptions like "007" reachable.
var doneIndexRe = regexp.MustCompile(`^[1-9][0-9]*$`)

// DoneRef is a parsed /done argument: either a 1-based position in the
// caller's open-task list, or a free-text query matched against task
// descriptions case-insensitively.
type DoneRef struct {
	Index int
	Query string
}

// IsIndex reports whether the reference is numeric
func (r DoneRef) IsIndex() bool {
	return r.Index > 0
}

// ParseDoneRef parses the argument of a /done command
func ParseDoneRef(arg string) DoneRef {
	s := strings.TrimSpace(arg)
	if doneIndexRe.MatchString(s) {
		// Out-of-range literals fall back to a text query
		if n, err := strconv.Atoi(s); err == nil {
			return DoneRef{Index: n}
		}
	}
	return DoneRef{Query: s}
}
