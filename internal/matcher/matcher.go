// Package matcher matches strings against glob or regex patterns. The
// server uses it for allowed origins, where a portal may serve widgets from
// many subdomains.
package matcher

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// PatternType selects how a pattern is interpreted.
type PatternType int

const (
	// Glob uses shell-style patterns (*, ?, []). * does not cross a slash.
	Glob PatternType = iota
	// Regex uses regular expressions.
	Regex
	// Auto picks Regex when the pattern carries regex syntax, else Glob.
	Auto
)

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Matcher matches input against one pattern.
type Matcher interface {
	Match(input string) bool
	Pattern() string
	Type() PatternType
}

// Options configures matching.
type Options struct {
	// CaseInsensitive folds case before matching.
	CaseInsensitive bool
	// Anchored adds ^ and $ to regex patterns when missing.
	Anchored bool
}

type matcher struct {
	pattern     string
	patternType PatternType
	glob        string
	compiled    *regexp.Regexp
	fold        bool
}

// New compiles pattern. A nil opts uses the zero Options.
func New(patternType PatternType, pattern string, opts *Options) (Matcher, error) {
	if opts == nil {
		opts = &Options{}
	}
	m := &matcher{pattern: pattern, patternType: patternType, fold: opts.CaseInsensitive}
	if patternType == Auto {
		m.patternType = detectPatternType(pattern)
	}

	switch m.patternType {
	case Glob:
		m.glob = pattern
		if m.fold {
			m.glob = strings.ToLower(pattern)
		}
		if _, err := path.Match(m.glob, ""); err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	case Regex:
		expr := pattern
		if opts.Anchored {
			if !strings.HasPrefix(expr, "^") {
				expr = "^" + expr
			}
			if !strings.HasSuffix(expr, "$") {
				expr += "$"
			}
		}
		if m.fold && !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		m.compiled = re
	default:
		return nil, fmt.Errorf("unsupported pattern type: %v", patternType)
	}
	return m, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(patternType PatternType, pattern string, opts *Options) Matcher {
	m, err := New(patternType, pattern, opts)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether input matches the pattern.
func (m *matcher) Match(input string) bool {
	if m.patternType == Regex {
		return m.compiled.MatchString(input)
	}
	if m.fold {
		input = strings.ToLower(input)
	}
	ok, _ := path.Match(m.glob, input)
	return ok
}

// Pattern returns the original pattern.
func (m *matcher) Pattern() string { return m.pattern }

// Type returns the resolved pattern type.
func (m *matcher) Type() PatternType { return m.patternType }

var regexIndicators = []string{
	"^", "$", `\d`, `\w`, `\s`, `\.`,
	"(?:", "(?i)", "{", "}", "+", "|", "(", ")",
}

// detectPatternType treats a pattern with regex-only syntax as Regex.
func detectPatternType(pattern string) PatternType {
	for _, indicator := range regexIndicators {
		if strings.Contains(pattern, indicator) {
			return Regex
		}
	}
	return Glob
}

// Set matches input against several patterns.
type Set struct {
	matchers []Matcher
	any      bool
}

// NewSet compiles patterns with Auto detection. A lone "*" pattern makes
// the set match everything.
func NewSet(patterns []string, opts *Options) (*Set, error) {
	s := &Set{matchers: make([]Matcher, 0, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch p {
		case "":
			continue
		case "*":
			s.any = true
			continue
		}
		m, err := New(Auto, p, opts)
		if err != nil {
			return nil, err
		}
		s.matchers = append(s.matchers, m)
	}
	return s, nil
}

// Origins compiles allowed origin patterns. Origins compare without case
// and regexes must match the whole origin.
func Origins(patterns []string) (*Set, error) {
	return NewSet(patterns, &Options{CaseInsensitive: true, Anchored: true})
}

// Match reports whether any pattern matches input.
func (s *Set) Match(input string) bool {
	if s == nil {
		return false
	}
	if s.any {
		return true
	}
	for _, m := range s.matchers {
		if m.Match(input) {
			return true
		}
	}
	return false
}

// Empty reports whether the set has no patterns.
func (s *Set) Empty() bool {
	return s == nil || (!s.any && len(s.matchers) == 0)
}

// Patterns returns the compiled patterns in order.
func (s *Set) Patterns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.matchers)+1)
	if s.any {
		out = append(out, "*")
	}
	for _, m := range s.matchers {
		out = append(out, m.Pattern())
	}
	return out
}
