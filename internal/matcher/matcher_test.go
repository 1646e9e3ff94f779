package matcher

import (
	"reflect"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		patternType PatternType
		opts        *Options
		wantType    PatternType
		wantErr     bool
	}{
		{name: "valid glob pattern", pattern: "https://*.example.com", patternType: Glob, wantType: Glob},
		{name: "valid regex pattern", pattern: `^https://\w+\.example\.com$`, patternType: Regex, wantType: Regex},
		{name: "invalid regex pattern", pattern: "(unclosed", patternType: Regex, wantErr: true},
		{name: "invalid glob pattern", pattern: "[unclosed", patternType: Glob, wantErr: true},
		{name: "auto detect glob", pattern: "https://portal-?.example.com", patternType: Auto, wantType: Glob},
		{name: "auto detect regex", pattern: `https://(crm|portal)\.example\.com`, patternType: Auto, wantType: Regex},
		{name: "unsupported type", pattern: "x", patternType: PatternType(9), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.patternType, tt.pattern, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if m.Type() != tt.wantType {
				t.Errorf("Type() = %v, want %v", m.Type(), tt.wantType)
			}
			if m.Pattern() != tt.pattern {
				t.Errorf("Pattern() = %q, want %q", m.Pattern(), tt.pattern)
			}
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name        string
		patternType PatternType
		pattern     string
		opts        *Options
		input       string
		want        bool
	}{
		{"glob subdomain", Glob, "https://*.example.com", nil, "https://crm.example.com", true},
		{"glob does not cross slash", Glob, "https://*", nil, "https://crm.example.com/path", false},
		{"glob other domain", Glob, "https://*.example.com", nil, "https://crm.example.org", false},
		{"glob case sensitive", Glob, "https://CRM.example.com", nil, "https://crm.example.com", false},
		{"glob case insensitive", Glob, "https://CRM.example.com", &Options{CaseInsensitive: true}, "https://crm.example.com", true},
		{"regex unanchored", Regex, `example\.com`, nil, "https://crm.example.com.evil.io", true},
		{"regex anchored", Regex, `https://\w+\.example\.com`, &Options{Anchored: true}, "https://crm.example.com.evil.io", false},
		{"regex anchored match", Regex, `https://\w+\.example\.com`, &Options{Anchored: true}, "https://crm.example.com", true},
		{"regex case insensitive", Regex, `^https://crm\.example\.com$`, &Options{CaseInsensitive: true}, "HTTPS://CRM.EXAMPLE.COM", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustNew(tt.patternType, tt.pattern, tt.opts)
			if got := m.Match(tt.input); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectPatternType(t *testing.T) {
	tests := map[string]PatternType{
		"https://crm.example.com":          Glob,
		"https://*.example.com":            Glob,
		`https://crm\.example\.com`:        Regex,
		"^https://":                        Regex,
		"https://(a|b).example.com":        Regex,
		`https://portal-\d+\.example\.com`: Regex,
	}
	for pattern, want := range tests {
		if got := detectPatternType(pattern); got != want {
			t.Errorf("detectPatternType(%q) = %v, want %v", pattern, got, want)
		}
	}
}

func TestOrigins(t *testing.T) {
	set, err := Origins([]string{
		"https://crm.example.com",
		"https://*.portal.example.com",
		`https://widget-\d+\.example\.net`,
		"",
	})
	if err != nil {
		t.Fatalf("Origins() error = %v", err)
	}

	allowed := []string{
		"https://crm.example.com",
		"https://CRM.Example.com",
		"https://eu.portal.example.com",
		"https://widget-42.example.net",
	}
	for _, o := range allowed {
		if !set.Match(o) {
			t.Errorf("Match(%q) = false, want true", o)
		}
	}

	denied := []string{
		"https://crm.example.com.evil.io",
		"http://crm.example.com",
		"https://widget-x.example.net",
		"https://portal.example.com",
	}
	for _, o := range denied {
		if set.Match(o) {
			t.Errorf("Match(%q) = true, want false", o)
		}
	}

	want := []string{"https://crm.example.com", "https://*.portal.example.com", `https://widget-\d+\.example\.net`}
	if got := set.Patterns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Patterns() = %v, want %v", got, want)
	}
}

func TestSetWildcardAndEmpty(t *testing.T) {
	set, err := Origins([]string{"*"})
	if err != nil {
		t.Fatal(err)
	}
	if !set.Match("https://anything.io") || set.Empty() {
		t.Error("a * set must match everything")
	}

	empty, err := Origins(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !empty.Empty() || empty.Match("https://crm.example.com") {
		t.Error("an empty set must match nothing")
	}

	var nilSet *Set
	if nilSet.Match("x") || !nilSet.Empty() {
		t.Error("a nil set must match nothing")
	}

	if _, err := Origins([]string{"https://(broken"}); err == nil {
		t.Error("Origins() accepted an invalid pattern")
	}
}

func TestMustNew(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustNew() did not panic on an invalid pattern")
		}
	}()
	MustNew(Regex, "(unclosed", nil)
}

func TestConcurrency(t *testing.T) {
	set, err := Origins([]string{"https://*.example.com"})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !set.Match("https://crm.example.com") {
				t.Error("concurrent Match() failed")
			}
		}()
	}
	wg.Wait()
}

func TestPatternTypeString(t *testing.T) {
	if Glob.String() != "glob" || Regex.String() != "regex" || Auto.String() != "auto" || PatternType(7).String() != "unknown" {
		t.Error("unexpected PatternType strings")
	}
}
