package kfmt

import (
	"bytes"
	"testing"
)

func TestFprintfVerbs(t *testing.T) {
	cases := []struct {
		format string
		args   []interface{}
		want   string
	}{
		{"hello %s", []interface{}{"world"}, "hello world"},
		{"%d", []interface{}{-42}, "-42"},
		{"%x", []interface{}{255}, "ff"},
		{"%o", []interface{}{8}, "10"},
		{"%t %t", []interface{}{true, false}, "true false"},
		{"%5d", []interface{}{3}, "    3"},
		{"%04x", []interface{}{0xf}, "000f"},
		{"100%%", nil, "100%"},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		Fprintf(&buf, c.format, c.args...)
		if got := buf.String(); got != c.want {
			t.Errorf("Fprintf(%q, %v) = %q, want %q", c.format, c.args, got, c.want)
		}
	}
}

func TestFprintfMissingAndExtraArgs(t *testing.T) {
	var buf bytes.Buffer
	Fprintf(&buf, "%d %d", 1)
	if got := buf.String(); got != "1 (MISSING)" {
		t.Fatalf("missing arg: got %q", got)
	}

	buf.Reset()
	Fprintf(&buf, "%d", 1, 2)
	if got := buf.String(); got != "1%!(EXTRA)" {
		t.Fatalf("extra arg: got %q", got)
	}
}

func TestFprintfWrongType(t *testing.T) {
	var buf bytes.Buffer
	Fprintf(&buf, "%d", "not a number")
	if got := buf.String(); got != "%!(WRONGTYPE)" {
		t.Fatalf("got %q", got)
	}
}
