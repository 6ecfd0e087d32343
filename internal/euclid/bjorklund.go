// Package euclid implements the Euclidean/step core of spec.md §4.2:
// Bjorklund mask generation, per-bar rotation drift, and the onset
// condition stack (PROB/PRE/NOT_PRE/FILL/EVERY_N).
package euclid

// Bjorklund distributes k onsets as evenly as possible across n steps
// using Bjorklund's algorithm (the same construction behind the standard
// Euclidean rhythm generator). Returns a boolean mask of length n.
func Bjorklund(n, k int) []bool {
	mask := make([]bool, n)
	if n <= 0 {
		return mask
	}
	if k <= 0 {
		return mask
	}
	if k >= n {
		for i := range mask {
			mask[i] = true
		}
		return mask
	}

	// Build groups: k groups of [true], n-k groups of [false], then
	// repeatedly fold the remainder groups into the front groups until at
	// most one remainder group is left. This is the standard iterative
	// restatement of Bjorklund's algorithm.
	groups := make([][]bool, 0, n)
	for i := 0; i < k; i++ {
		groups = append(groups, []bool{true})
	}
	remainder := make([][]bool, 0, n-k)
	for i := 0; i < n-k; i++ {
		remainder = append(remainder, []bool{false})
	}

	for len(remainder) > 1 {
		pairs := minInt(len(groups), len(remainder))
		newGroups := make([][]bool, 0, pairs)
		for i := 0; i < pairs; i++ {
			merged := append(append([]bool{}, groups[i]...), remainder[i]...)
			newGroups = append(newGroups, merged)
		}
		var newRemainder [][]bool
		if len(groups) > pairs {
			newRemainder = append(newRemainder, groups[pairs:]...)
		}
		if len(remainder) > pairs {
			newRemainder = append(newRemainder, remainder[pairs:]...)
		}
		groups = newGroups
		remainder = newRemainder
	}

	out := make([]bool, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	for _, g := range remainder {
		out = append(out, g...)
	}
	copy(mask, out)
	return mask
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Rotate returns a copy of mask rotated left by offset steps (onsets move
// earlier in the bar as offset increases), wrapping around the bar.
func Rotate(mask []bool, offset int) []bool {
	n := len(mask)
	if n == 0 {
		return mask
	}
	offset = ((offset % n) + n) % n
	out := make([]bool, n)
	for i := range mask {
		out[i] = mask[(i+offset)%n]
	}
	return out
}

// RotationForBar computes the per-bar rotation offset of spec.md §4.2:
// round(rotation_rate_per_bar * bar_index + initial_rotation), optionally
// clamped by maxRotRate (guard.max_rot_rate, spec.md §4.6).
func RotationForBar(rotationRatePerBar, initialRotation float64, barIndex int, maxRotRate float64) int {
	rate := rotationRatePerBar
	if maxRotRate > 0 {
		if rate > maxRotRate {
			rate = maxRotRate
		}
		if rate < -maxRotRate {
			rate = -maxRotRate
		}
	}
	return roundToInt(rate*float64(barIndex) + initialRotation)
}

func roundToInt(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}
