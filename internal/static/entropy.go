package static

import "math"

// HighEntropyThreshold marks content that is likely compressed or encrypted.
const HighEntropyThreshold = 7.0

// Entropy returns the Shannon entropy of the byte-value distribution of data,
// in bits per byte. The result is in [0, 8]; an empty buffer yields 0.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var counts [256]int
	for _, b := range data {
		counts[b]++
	}

	total := float64(len(data))
	ent := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		ent -= p * math.Log2(p)
	}

	// Rounding can push a uniform distribution a hair past the bounds.
	return math.Max(0, math.Min(8, ent))
}
