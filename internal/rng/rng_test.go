package rng

import "testing"

func TestDeriveDeterministic(t *testing.T) {
	a := Derive(42, "drum", "kick", 0)
	b := Derive(42, "drum", "kick", 0)
	if a.s != b.s {
		t.Fatalf("Derive not deterministic: %d != %d", a.s, b.s)
	}
}

func TestDeriveDistinguishesTags(t *testing.T) {
	a := Derive(42, "drum", "kick", 0)
	b := Derive(42, "drum", "snare", 0)
	c := Derive(42, "drum", "kick", 1)
	if a.s == b.s {
		t.Fatalf("different layer tags collided")
	}
	if a.s == c.s {
		t.Fatalf("different bar tags collided")
	}
}

func TestFloat64Range(t *testing.T) {
	s := Derive(1, "t")
	for i := 0; i < 1000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64 out of range: %f", v)
		}
	}
}

func TestIntRangeInclusive(t *testing.T) {
	s := Derive(7, "r")
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := s.IntRange(3, 5)
		if v < 3 || v > 5 {
			t.Fatalf("IntRange out of bounds: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected to observe all 3 values, got %v", seen)
	}
}

func TestBernoulliExtremes(t *testing.T) {
	s := Derive(1, "b")
	if s.Bernoulli(0) {
		t.Fatalf("p=0 should never be true")
	}
	if !s.Bernoulli(1) {
		t.Fatalf("p=1 should always be true")
	}
}

func TestWeightedChoiceDegenerate(t *testing.T) {
	s := Derive(1, "w")
	if idx := s.WeightedChoice([]float64{0, 0, 0}); idx != 0 {
		t.Fatalf("expected 0 for all-zero weights, got %d", idx)
	}
	if idx := s.WeightedChoice(nil); idx != 0 {
		t.Fatalf("expected 0 for empty weights, got %d", idx)
	}
}

func TestNormalTruncatedBounds(t *testing.T) {
	s := Derive(9, "n")
	for i := 0; i < 500; i++ {
		v := s.NormalTruncated(0, 1, -2, 2)
		if v < -2 || v > 2 {
			t.Fatalf("NormalTruncated out of bounds: %f", v)
		}
	}
}

func TestTwoIndependentStreamsDisjointSeeds(t *testing.T) {
	s1 := Derive(1, "a")
	s2 := Derive(2, "a")
	if s1.Next() == s2.Next() {
		t.Fatalf("different roots should not collide on first draw")
	}
}
