package ident

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Foo/Bar", "foo/bar", true},
		{"foo/bar", "foo/bar", true},
		{"/foo/bar/", "foo/bar", true},
		{"  acme/servo  ", "acme/servo", true},
		{"a.b-c_d/e.f", "a.b-c_d/e.f", true},
		{"foo", "", false},
		{"foo//bar", "", false},
		{"foo bar/baz", "", false},
		{"foo/bar/baz", "", false},
		{"", "", false},
		{"/", "", false},
	}

	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSplit(t *testing.T) {
	owner, name := Split("acme/servo")
	if owner != "acme" || name != "servo" {
		t.Errorf("Split = (%q, %q), want (acme, servo)", owner, name)
	}
}
