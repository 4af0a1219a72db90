// Package shuffle provides a deterministic, cross-platform permutation from
// a string seed. Both duel participants derive the same location order from
// the shared seed, so the generator is pinned to an explicit algorithm:
// FNV-1a (32-bit) hashes the seed, xorshift32 drives a Fisher-Yates pass.
package shuffle

// fnv32a is the 32-bit FNV-1a hash of s
func fnv32a(s string) uint32 {
	const (
		offset uint32 = 2166136261
		prime  uint32 = 16777619
	)
	h := offset
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// rng is a xorshift32 generator. State must never be zero.
type rng struct {
	state uint32
}

func newRNG(seed string) *rng {
	state := fnv32a(seed)
	if state == 0 {
		state = 1
	}
	return &rng{state: state}
}

func (r *rng) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// intn returns a value in [0, n)
func (r *rng) intn(n int) int {
	return int(r.next() % uint32(n))
}

// Shuffle returns a new slice holding a seed-determined permutation of
// items. The input is never mutated; equal seeds yield identical orders
// across runs and platforms.
func Shuffle[T any](items []T, seed string) []T {
	out := make([]T, len(items))
	copy(out, items)

	r := newRNG(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := r.intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
