// Package sampling draws random samples without replacement, uniformly or weighted.
package sampling

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
)

// ErrInsufficientSample is returned when more distinct items are requested than exist.
// It is recoverable: the functions still return every item they could draw.
var ErrInsufficientSample = errors.New("insufficient sample")

// NewRand returns a generator seeded from seed, or from the runtime when seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Uniform returns k distinct elements of items in random order. When k exceeds
// len(items) every element is returned together with ErrInsufficientSample.
func Uniform[T any](items []T, k int, rng *rand.Rand) ([]T, error) {
	if k < 0 {
		k = 0
	}
	pool := slices.Clone(items)

	var err error
	if k > len(pool) {
		err = fmt.Errorf("%w: requested %d of %d items", ErrInsufficientSample, k, len(pool))
		k = len(pool)
	}

	// partial Fisher-Yates
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], err
}

// WeightedWithoutReplacement draws n distinct keys of weights. Each draw is
// proportional to the weights still in the pool; a drawn key leaves the pool with its
// weight, so later draws are renormalised over what remains.
//
// When fewer than n keys exist every key is drawn and the error wraps
// ErrInsufficientSample. Keys with a zero weight are only drawn once every remaining
// key has zero weight.
func WeightedWithoutReplacement(weights map[string]float64, n int, rng *rand.Rand) ([]string, error) {
	// sorted keys make a seeded draw reproducible
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pool := make([]float64, len(keys))
	for i, k := range keys {
		pool[i] = max(weights[k], 0)
	}

	selected := make([]string, 0, min(n, len(keys)))
	for len(selected) < n && len(keys) > 0 {
		i := pick(pool, rng)
		selected = append(selected, keys[i])
		keys = slices.Delete(keys, i, i+1)
		pool = slices.Delete(pool, i, i+1)
	}

	if len(selected) < n {
		return selected, fmt.Errorf("%w: requested %d distinct items, only %d available",
			ErrInsufficientSample, n, len(selected))
	}
	return selected, nil
}

// pick returns an index drawn proportionally to weights
func pick(weights []float64, rng *rand.Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.IntN(len(weights))
	}

	r := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return i
		}
	}
	// floating point slack: fall back to the last positive weight
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return len(weights) - 1
}
