package scratch

import "testing"

func resetForTest() {
	ResetForTest()
}

func TestInitAndLookup(t *testing.T) {
	resetForTest()
	Init([]uint64{0, 2, 3})

	if got := HartCount(); got != 3 {
		t.Fatalf("HartCount = %d, want 3", got)
	}
	if idx := IndexForHartID(2); idx != 1 {
		t.Fatalf("IndexForHartID(2) = %d, want 1", idx)
	}
	if idx := IndexForHartID(99); idx != InvalidHartIndex {
		t.Fatalf("IndexForHartID(99) = %d, want InvalidHartIndex", idx)
	}

	hid, ok := HartIDForIndex(2)
	if !ok || hid != 3 {
		t.Fatalf("HartIDForIndex(2) = (%d, %v), want (3, true)", hid, ok)
	}
	if _, ok := HartIDForIndex(5); ok {
		t.Fatal("HartIDForIndex(5) should be out of range")
	}

	s := ForHartID(3)
	if s == nil || s.HartIndex != 2 {
		t.Fatalf("ForHartID(3) = %+v, want HartIndex 2", s)
	}
}

func TestAllocIdempotence(t *testing.T) {
	resetForTest()
	Init([]uint64{0})
	s := ForIndex(0)

	buf1, err := s.Alloc("hsm", 16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf1[0] = 0x42

	buf2, err := s.Alloc("hsm", 16)
	if err != nil {
		t.Fatalf("second Alloc: %v", err)
	}
	if &buf1[0] != &buf2[0] {
		t.Fatal("re-Alloc with same name/size did not return the same backing storage")
	}
	if buf2[0] != 0x42 {
		t.Fatal("re-Alloc lost previously written data")
	}

	s.Free("hsm")
	buf3, err := s.Alloc("hsm", 32)
	if err != nil {
		t.Fatalf("Alloc after Free with new size: %v", err)
	}
	if len(buf3) != 32 {
		t.Fatalf("len(buf3) = %d, want 32", len(buf3))
	}
}

func TestAllocSizeMismatch(t *testing.T) {
	resetForTest()
	Init([]uint64{0})
	s := ForIndex(0)

	if _, err := s.Alloc("ipi", 8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := s.Alloc("ipi", 16); err == nil {
		t.Fatal("expected an error reallocating the same name with a different size")
	}
}
