package ldtest

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Filter decides whether to run a specific test.
type Filter interface {
	Match(TestID) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(TestID) bool

func (f FilterFunc) Match(id TestID) bool { return f(id) }

// SelfDescribingFilter is a Filter that can explain itself at the start of a run.
type SelfDescribingFilter interface {
	Filter
	Describe(out io.Writer, supportedCapabilities []string, allCapabilities []string)
}

// RegexFilters implements the --run and --skip command-line options.
type RegexFilters struct {
	MustMatch    TestIDPatternList
	MustNotMatch TestIDPatternList
}

// Match returns true if the test should run. A parent of a test selected by MustMatch also
// matches, so that the subtest can be reached.
func (r RegexFilters) Match(id TestID) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(id, true)) &&
		!r.MustNotMatch.AnyMatch(id, false)
}

// Describe prints the filter criteria, and any capabilities the host test service lacks.
func (r RegexFilters) Describe(out io.Writer, supportedCapabilities []string, allCapabilities []string) {
	if r.MustMatch.IsDefined() || r.MustNotMatch.IsDefined() {
		fmt.Fprintln(out, "Some tests will be skipped based on the filter criteria for this test run:")
		if r.MustMatch.IsDefined() {
			fmt.Fprintf(out, "  skip any not matching %s\n", r.MustMatch)
		}
		if r.MustNotMatch.IsDefined() {
			fmt.Fprintf(out, "  skip any matching %s\n", r.MustNotMatch)
		}
		fmt.Fprintln(out)
	}

	supported := make(map[string]bool)
	for _, c := range supportedCapabilities {
		supported[c] = true
	}
	var missing []string
	for _, c := range allCapabilities {
		if !supported[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) != 0 {
		fmt.Fprintln(out, "Some tests will be skipped because the host test service does not support the following capabilities:")
		fmt.Fprintf(out, "  %s\n", strings.Join(missing, ", "))
		fmt.Fprintln(out)
	}
}

// TestIDPattern is a slash-separated list of regexes, one per TestID component.
type TestIDPattern []*regexp.Regexp

// Match tests each component of the ID against the corresponding regex. If the ID is shorter
// than the pattern, it matches only when includeParents is true.
func (p TestIDPattern) Match(id TestID, includeParents bool) bool {
	n := len(p)
	if n > len(id) {
		if !includeParents {
			return false
		}
		n = len(id)
	}
	for i := 0; i < n; i++ {
		if !p[i].MatchString(id[i]) {
			return false
		}
	}
	return true
}

func (p TestIDPattern) String() string {
	ss := make([]string, 0, len(p))
	for _, c := range p {
		ss = append(ss, c.String())
	}
	return strings.Join(ss, "/")
}

// ParseTestIDPattern parses a slash-separated list of regexes.
func ParseTestIDPattern(s string) (TestIDPattern, error) {
	parts := strings.Split(s, "/")
	ret := make(TestIDPattern, 0, len(parts))
	for _, part := range parts {
		rx, err := regexp.Compile(part)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", part, err)
		}
		ret = append(ret, rx)
	}
	return ret, nil
}

// TestIDPatternList is a repeatable command-line value; it implements pflag.Value.
type TestIDPatternList []TestIDPattern

func (l TestIDPatternList) String() string {
	ss := make([]string, 0, len(l))
	for _, p := range l {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

func (l *TestIDPatternList) Set(value string) error {
	p, err := ParseTestIDPattern(value)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

func (l *TestIDPatternList) Type() string { return "pattern" }

func (l TestIDPatternList) IsDefined() bool {
	return len(l) != 0
}

func (l TestIDPatternList) AnyMatch(id TestID, includeParents bool) bool {
	for _, p := range l {
		if p.Match(id, includeParents) {
			return true
		}
	}
	return false
}
