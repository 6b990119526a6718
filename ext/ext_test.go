package ext

import (
	"testing"

	"github.com/rvcore/coresbi/sbierr"
	"github.com/rvcore/coresbi/trap"
)

type fakeExt struct {
	id      int64
	probeFn func(int64) bool
	handle  func(int64, [6]uint64) (sbierr.Code, uint64)
}

func (f fakeExt) ExtensionID() int64 { return f.id }
func (f fakeExt) Probe(fid int64) bool {
	if f.probeFn == nil {
		return true
	}
	return f.probeFn(fid)
}
func (f fakeExt) Handle(fid int64, args [6]uint64) (sbierr.Code, uint64) {
	return f.handle(fid, args)
}

func ecallCtx(extID, funcID int64, a0 uint64) *trap.Context {
	ctx := &trap.Context{}
	ctx.Regs.SetA(7, uint64(extID))
	ctx.Regs.SetA(6, uint64(funcID))
	ctx.Regs.SetA(0, a0)
	return ctx
}

func TestDispatchRoutesToRegisteredExtension(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Register(fakeExt{id: 0x10, handle: func(fid int64, args [6]uint64) (sbierr.Code, uint64) {
		return sbierr.OK, args[0] + 1
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	code, value := tbl.Dispatch(ecallCtx(0x10, 0, 41))
	if code != int64(sbierr.OK) || value != 42 {
		t.Fatalf("Dispatch = (%d, %d), want (0, 42)", code, value)
	}
}

func TestDispatchReturnsNotSupportedForUnknownExtension(t *testing.T) {
	tbl := NewTable()
	code, _ := tbl.Dispatch(ecallCtx(0x99, 0, 0))
	if code != int64(sbierr.ErrNotSupported) {
		t.Fatalf("code = %d, want ErrNotSupported", code)
	}
}

func TestRegisterRejectsDuplicateExtensionID(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Register(fakeExt{id: 1, handle: func(int64, [6]uint64) (sbierr.Code, uint64) { return sbierr.OK, 0 }}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := tbl.Register(fakeExt{id: 1, handle: func(int64, [6]uint64) (sbierr.Code, uint64) { return sbierr.OK, 0 }})
	if err != sbierr.ErrAlreadyAvail {
		t.Fatalf("err = %v, want ErrAlreadyAvail", err)
	}
}

func TestSupportsQueriesProbe(t *testing.T) {
	tbl := NewTable()
	tbl.Register(fakeExt{id: 2, probeFn: func(fid int64) bool { return fid == 7 }, handle: func(int64, [6]uint64) (sbierr.Code, uint64) { return sbierr.OK, 0 }})
	if !tbl.Supports(2, 7) {
		t.Fatal("expected Supports(2, 7) to be true")
	}
	if tbl.Supports(2, 8) {
		t.Fatal("expected Supports(2, 8) to be false")
	}
	if tbl.Supports(3, 7) {
		t.Fatal("expected Supports for an unregistered extension to be false")
	}
}

func TestPMUStubAlwaysReportsNotSupported(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Register(PMUStub{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	code, _ := tbl.Dispatch(ecallCtx(pmuExtensionID, 0, 0))
	if code != int64(sbierr.ErrNotSupported) {
		t.Fatalf("code = %d, want ErrNotSupported", code)
	}
	if tbl.Supports(pmuExtensionID, 0) {
		t.Fatal("PMUStub should never report an fid as supported")
	}
}
