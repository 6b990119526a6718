package console

import "testing"

func TestPutcharTranslatesNewline(t *testing.T) {
	var out []byte
	c := New(Ops{Putc: func(ch byte) { out = append(out, ch) }})
	c.Putchar('a')
	c.Putchar('\n')
	if string(out) != "a\r\n" {
		t.Fatalf("out = %q, want %q", out, "a\r\n")
	}
}

func TestGetcharReturnsMinusOneWhenEmpty(t *testing.T) {
	c := New(Ops{Getc: func() (byte, bool) { return 0, false }})
	if got := c.Getchar(); got != -1 {
		t.Fatalf("Getchar = %d, want -1", got)
	}
}

func TestGetcharReturnsByte(t *testing.T) {
	c := New(Ops{Getc: func() (byte, bool) { return 'x', true }})
	if got := c.Getchar(); got != 'x' {
		t.Fatalf("Getchar = %d, want %d", got, 'x')
	}
}

func TestNilHooksAreSafe(t *testing.T) {
	c := New(Ops{})
	c.Putchar('a')
	if got := c.Getchar(); got != -1 {
		t.Fatalf("Getchar = %d, want -1", got)
	}
}
