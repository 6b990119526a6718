package platform

import "testing"

func TestNilOpsAreSafe(t *testing.T) {
	var o *Ops
	if err := o.EarlyInitOrNil(true); err != nil {
		t.Fatalf("EarlyInitOrNil on nil Ops: %v", err)
	}
	o.ConsolePutcOrNil('a')
	if b, ok := o.ConsoleGetcOrNil(); ok || b != 0 {
		t.Fatalf("ConsoleGetcOrNil on nil Ops = (%d, %v), want (0, false)", b, ok)
	}
	if o.TimerValueOrNil() != 0 {
		t.Fatal("TimerValueOrNil on nil Ops should be 0")
	}
	if o.VendorExtCheckOrNil(0x09000000) {
		t.Fatal("VendorExtCheckOrNil on nil Ops should be false")
	}
}

func TestWiredHooksAreCalled(t *testing.T) {
	var putc byte
	var rebooted bool
	o := &Ops{
		ConsolePutc:    func(ch byte) { putc = ch },
		SystemReboot:   func() error { rebooted = true; return nil },
		VendorExtCheck: func(extID int64) bool { return extID == 0x09000042 },
	}
	o.ConsolePutcOrNil('z')
	if putc != 'z' {
		t.Fatalf("putc = %q, want 'z'", putc)
	}
	if err := o.SystemRebootOrNil(); err != nil || !rebooted {
		t.Fatalf("SystemRebootOrNil: err=%v rebooted=%v", err, rebooted)
	}
	if !o.VendorExtCheckOrNil(0x09000042) {
		t.Fatal("expected VendorExtCheckOrNil to claim the configured extid")
	}
}
