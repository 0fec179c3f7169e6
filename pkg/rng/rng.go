package rng

import "math/rand/v2"

// Key is an immutable pseudo-random state. Every operation that consumes
// randomness takes a Key and hands back a freshly derived one; callers carry
// the returned Key forward and must never reuse a consumed key, otherwise
// successive draws are correlated.
type Key struct {
	hi, lo uint64
}

// NewKey derives a Key from a seed.
func NewKey(seed uint64) Key {
	x := seed
	return Key{hi: splitmix64(&x), lo: splitmix64(&x)}
}

// Split derives two independent keys from k: sub is meant to be consumed
// immediately, next replaces k in the caller's hands.
func (k Key) Split() (sub, next Key) {
	x := k.hi
	y := k.lo ^ 0xda3e39cb94b95bdb
	sub = Key{hi: splitmix64(&x), lo: splitmix64(&y)}
	next = Key{hi: splitmix64(&x), lo: splitmix64(&y)}
	return sub, next
}

// Source returns a PCG source seeded from the key. The source is freshly
// allocated; the key itself stays immutable.
func (k Key) Source() rand.Source {
	return rand.NewPCG(k.hi, k.lo)
}

func splitmix64(x *uint64) uint64 {
	*x += 0x9e3779b97f4a7c15
	z := *x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
