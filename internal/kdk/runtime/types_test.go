package runtime

import "testing"

func TestParseImageRef(t *testing.T) {
	cases := []struct {
		input    string
		wantRepo string
		wantTag  string
		wantErr  bool
	}{
		{"ubuntu:22.04", "ubuntu", "22.04", false},
		{"alice-kdk:1700000000", "alice-kdk", "1700000000", false},
		{"ubuntu", "ubuntu", "latest", false},
		{"ghcr.io/org/devbase:v3", "ghcr.io/org/devbase", "v3", false},
		{"", "", "", true},
		{"UPPERCASE:tag", "", "", true},
	}

	for _, tc := range cases {
		got, err := ParseImageRef(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseImageRef(%q): expected error, got %+v", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseImageRef(%q): %v", tc.input, err)
			continue
		}
		if got.Repository != tc.wantRepo || got.Tag != tc.wantTag {
			t.Errorf("ParseImageRef(%q) = %s:%s, want %s:%s",
				tc.input, got.Repository, got.Tag, tc.wantRepo, tc.wantTag)
		}
	}
}

func TestImageRefString(t *testing.T) {
	ref := ImageRef{Repository: "alice-kdk", Tag: "1000"}
	if got := ref.String(); got != "alice-kdk:1000" {
		t.Errorf("String() = %q, want %q", got, "alice-kdk:1000")
	}
	untagged := ImageRef{Repository: "ubuntu"}
	if got := untagged.String(); got != "ubuntu" {
		t.Errorf("String() untagged = %q, want %q", got, "ubuntu")
	}
}

func TestImageRefRoundTrip(t *testing.T) {
	orig := ImageRef{Repository: "bob-kdk", Tag: "1699999999"}
	parsed, err := ParseImageRef(orig.String())
	if err != nil {
		t.Fatalf("ParseImageRef: %v", err)
	}
	if parsed != orig {
		t.Errorf("round trip = %+v, want %+v", parsed, orig)
	}
}
