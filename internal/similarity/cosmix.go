// Package similarity scores how well two rankings of the same items agree.
package similarity

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmpty is returned by Median for an empty input.
var ErrEmpty = errors.New("empty input")

// Cosmix returns the cumulative prefix-overlap score of two rankings:
//
//	sum_{x=1..k} |top_x(list) ∩ top_x(ref)| / (k(k+1)/2)
//
// The score lies in [0, 1] and weights early agreement more, since every
// shared item keeps contributing to all longer prefixes. k must not exceed
// either list's length; violating that is a caller bug and panics. k == 0
// scores 0.
func Cosmix[T comparable](list, ref []T, k int) float64 {
	if k < 0 || k > len(list) || k > len(ref) {
		panic(fmt.Sprintf("cosmix: k=%d out of range for lengths %d and %d", k, len(list), len(ref)))
	}
	if k == 0 {
		return 0
	}

	seen := make(map[T]uint8, 2*k)
	const inList, inRef = 1, 2

	shared := 0
	numerator := 0
	for x := 0; x < k; x++ {
		shared += mark(seen, list[x], inList, inRef)
		shared += mark(seen, ref[x], inRef, inList)
		numerator += shared
	}

	denominator := k * (k + 1) / 2
	return float64(numerator) / float64(denominator)
}

// mark records item as seen on side self and reports 1 when that makes it
// shared with the other side for the first time.
func mark[T comparable](seen map[T]uint8, item T, self, other uint8) int {
	prev := seen[item]
	if prev&self != 0 {
		return 0
	}
	seen[item] = prev | self
	if prev&other != 0 {
		return 1
	}
	return 0
}

// Median returns the median of values without modifying them.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}

	v := append([]float64(nil), values...)
	sort.Float64s(v)

	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid], nil
	}
	return (v[mid-1] + v[mid]) / 2, nil
}
