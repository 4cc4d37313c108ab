package environment

import "testing"

func TestStringOr(t *testing.T) {
	t.Setenv("KDK_TEST_STR", "value")
	if got := StringOr("KDK_TEST_STR", "fallback"); got != "value" {
		t.Errorf("StringOr set = %q, want %q", got, "value")
	}
	if got := StringOr("KDK_TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("StringOr unset = %q, want %q", got, "fallback")
	}
	t.Setenv("KDK_TEST_STR_EMPTY", "")
	if got := StringOr("KDK_TEST_STR_EMPTY", "fallback"); got != "fallback" {
		t.Errorf("StringOr empty = %q, want %q", got, "fallback")
	}
}

func TestBoolOr(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"0", true, false},
		{"false", true, false},
		{"nonsense", true, true},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Setenv("KDK_TEST_BOOL", tc.value)
		if got := BoolOr("KDK_TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("BoolOr(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
		}
	}
}

func TestIntOr(t *testing.T) {
	t.Setenv("KDK_TEST_INT", "42")
	if got := IntOr("KDK_TEST_INT", 7); got != 42 {
		t.Errorf("IntOr valid = %d, want 42", got)
	}
	t.Setenv("KDK_TEST_INT", "not-a-number")
	if got := IntOr("KDK_TEST_INT", 7); got != 7 {
		t.Errorf("IntOr invalid = %d, want 7", got)
	}
	if got := IntOr("KDK_TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("IntOr unset = %d, want 7", got)
	}
}
