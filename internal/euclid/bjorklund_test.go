package euclid

import "testing"

func countOnsets(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}

func TestBjorklundOnsetCount(t *testing.T) {
	for _, k := range []int{0, 1, 3, 4, 7, 12, 16} {
		mask := Bjorklund(16, k)
		if len(mask) != 16 {
			t.Fatalf("fills=%d: expected length 16, got %d", k, len(mask))
		}
		if got := countOnsets(mask); got != k {
			t.Fatalf("fills=%d: expected %d onsets, got %d", k, k, got)
		}
	}
}

func TestBjorklundEvenDistribution(t *testing.T) {
	// E(4,16) is the canonical four-on-the-floor kick pattern.
	mask := Bjorklund(16, 4)
	for _, s := range []int{0, 4, 8, 12} {
		if !mask[s] {
			t.Fatalf("expected onset at step %d in E(4,16), got %v", s, mask)
		}
	}
}

func TestBjorklundDeterministic(t *testing.T) {
	a := Bjorklund(16, 5)
	b := Bjorklund(16, 5)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Bjorklund not deterministic at step %d", i)
		}
	}
}

func TestRotateWraps(t *testing.T) {
	mask := []bool{true, false, false, false}
	rotated := Rotate(mask, 1)
	want := []bool{false, false, false, true}
	for i := range want {
		if rotated[i] != want[i] {
			t.Fatalf("Rotate(1) = %v, want %v", rotated, want)
		}
	}
}

func TestRotationForBarClamped(t *testing.T) {
	got := RotationForBar(10, 0, 3, 2)
	if got != 6 {
		t.Fatalf("expected rate clamped to 2 * bar 3 = 6, got %d", got)
	}
}
