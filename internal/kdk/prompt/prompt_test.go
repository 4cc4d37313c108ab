package prompt

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},       // empty defaults to no
		{"anything\n", false},
		{"", false}, // EOF
	}
	for _, tc := range cases {
		var out bytes.Buffer
		p := New(strings.NewReader(tc.input), &out)
		got, err := p.Confirm("proceed?")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("Confirm(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "proceed?") {
			t.Errorf("question not written to out: %q", out.String())
		}
	}
}

func TestSelect(t *testing.T) {
	options := []string{"alice-kdk:2000", "alice-kdk:1000"}

	t.Run("numbered choice", func(t *testing.T) {
		var out bytes.Buffer
		p := New(strings.NewReader("2\n"), &out)
		got, err := p.Select("pick an image", options, "ubuntu:24.04")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if got != "alice-kdk:1000" {
			t.Errorf("Select = %q, want %q", got, "alice-kdk:1000")
		}
	})

	t.Run("empty line returns default", func(t *testing.T) {
		var out bytes.Buffer
		p := New(strings.NewReader("\n"), &out)
		got, err := p.Select("pick an image", options, "ubuntu:24.04")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		// The default is the configured image, not the newest snapshot.
		if got != "ubuntu:24.04" {
			t.Errorf("Select default = %q, want %q", got, "ubuntu:24.04")
		}
	})

	t.Run("out of range", func(t *testing.T) {
		var out bytes.Buffer
		p := New(strings.NewReader("9\n"), &out)
		if _, err := p.Select("pick an image", options, "ubuntu:24.04"); err == nil {
			t.Error("Select accepted out-of-range choice")
		}
	})

	t.Run("non-numeric", func(t *testing.T) {
		var out bytes.Buffer
		p := New(strings.NewReader("abc\n"), &out)
		if _, err := p.Select("pick an image", options, "ubuntu:24.04"); err == nil {
			t.Error("Select accepted non-numeric choice")
		}
	})
}
