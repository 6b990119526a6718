package bitmap

import "testing"

func TestSetClearTest(t *testing.T) {
	var b Bitmap64
	if b.Test(3) {
		t.Fatal("bit 3 should start clear")
	}
	if prev := b.Set(3); prev {
		t.Fatal("Set should report the prior value, false")
	}
	if !b.Test(3) {
		t.Fatal("bit 3 should be set")
	}
	if prev := b.Clear(3); !prev {
		t.Fatal("Clear should report the prior value, true")
	}
	if b.Test(3) {
		t.Fatal("bit 3 should be clear again")
	}
}

func TestExchangeZero(t *testing.T) {
	var b Bitmap64
	b.Set(1)
	b.Set(5)
	got := b.ExchangeZero()
	if got != (1<<1)|(1<<5) {
		t.Fatalf("ExchangeZero = %#x, want bits 1 and 5", got)
	}
	if b.Load() != 0 {
		t.Fatal("ExchangeZero should reset the bitmap to zero")
	}
}

func TestIterateAscending(t *testing.T) {
	var got []uint
	Iterate((1<<2)|(1<<0)|(1<<7), func(bit uint) { got = append(got, bit) })
	want := []uint{0, 2, 7}
	if len(got) != len(want) {
		t.Fatalf("Iterate visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Iterate order = %v, want ascending %v", got, want)
		}
	}
}

func TestStoreMask(t *testing.T) {
	var b Bitmap64
	b.StoreMask(0xff)
	if b.Load() != 0xff {
		t.Fatalf("Load = %#x, want 0xff", b.Load())
	}
}
