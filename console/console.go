// Package console implements only the legacy SBI console extension
// (putchar/getchar), per spec.md §1 and SPEC_FULL.md §C: the
// line-buffered "scratch console formatter" lib/sbi/sbi_console.c
// also provides is explicitly out of scope here (boot diagnostics use
// kfmt directly through platform.Ops.ConsolePutc). This package is
// what a guest sees if it re-enters the legacy console SBI extension
// after boot, as spec.md §7 allows.
package console

import "github.com/rvcore/coresbi/rlock"

// Ops are the two platform hooks the legacy extension calls through,
// the console half of spec.md §6's platform_ops.
type Ops struct {
	Putc func(ch byte)
	Getc func() (byte, bool)
}

// Console serializes legacy putchar calls behind a single spinlock,
// spec.md §5's "per-console spinlock for the line buffer" — even
// though this extension has no line buffer of its own, concurrent
// HARTs issuing putchar must not interleave bytes.
type Console struct {
	mu  rlock.Spinlock
	ops Ops
}

// New wraps ops as a Console.
func New(ops Ops) *Console { return &Console{ops: ops} }

// Putchar implements the legacy SBI_EXT_0_1_CONSOLE_PUTCHAR call: a
// newline is preceded by a carriage return, matching sbi_putc's
// \n -> \r\n translation. It returns nothing: the legacy extension's
// putchar has no failure return.
func (c *Console) Putchar(ch byte) {
	c.mu.Acquire()
	defer c.mu.Release()
	if c.ops.Putc == nil {
		return
	}
	if ch == '\n' {
		c.ops.Putc('\r')
	}
	c.ops.Putc(ch)
}

// Getchar implements the legacy SBI_EXT_0_1_CONSOLE_GETCHAR call,
// returning -1 (as a Go -1-sentinel int) when no byte is available or
// no platform hook is wired.
func (c *Console) Getchar() int {
	c.mu.Acquire()
	defer c.mu.Release()
	if c.ops.Getc == nil {
		return -1
	}
	b, ok := c.ops.Getc()
	if !ok {
		return -1
	}
	return int(b)
}
