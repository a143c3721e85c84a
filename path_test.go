package cadcore_test

import (
	"testing"

	"github.com/cadcore-go/cadcore"
)

func TestNewPathValid(t *testing.T) {
	cases := []string{
		"/part",
		"/assemblies and drawings/drawing",
		`/parts/screws\/bolts/bolt1`,
		`/parts/a\\b`,
	}
	for _, s := range cases {
		p, err := cadcore.NewPath(s)
		if err != nil {
			t.Errorf("NewPath(%q) = %v, want valid", s, err)
			continue
		}
		if p.String() != s {
			t.Errorf("String() = %q, want %q", p.String(), s)
		}
		if p.IsZero() {
			t.Errorf("NewPath(%q) should not be zero", s)
		}
	}
}

func TestNewPathInvalid(t *testing.T) {
	cases := []string{
		"part",
		"/parts/",
		"//part",
		"/",
		"",
		`/part\`,
	}
	for _, s := range cases {
		if _, err := cadcore.NewPath(s); err == nil {
			t.Errorf("NewPath(%q) = nil, want PathCreationError", s)
		}
	}
}

func TestPathIsZero(t *testing.T) {
	var zero cadcore.Path
	if !zero.IsZero() {
		t.Fatal("zero-value Path should report IsZero")
	}
}

func TestIncrementNameSuffix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/p", "/p (2)"},
		{"/p (2)", "/p (3)"},
		{"/p (9)", "/p (10)"},
		{"/a/p", "/a/p (2)"},
		{"/p (0)", "/p (0) (2)"},
		{"/p (apple)", "/p (apple) (2)"},
	}
	for _, c := range cases {
		p := mustPath(c.in)
		got := p.IncrementNameSuffix().String()
		if got != c.want {
			t.Errorf("IncrementNameSuffix(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
