package gallery

import "unicode/utf16"

// seedState hashes seed the way the web client does, over UTF-16 code
// units, so both sides shuffle identically.
func seedState(seed string) uint32 {
	var h uint32
	for _, c := range utf16.Encode([]rune(seed)) {
		h = h<<5 - h + uint32(c)
	}
	return h
}

type lcg struct{ state uint32 }

// next returns a float in [0, 1).
func (g *lcg) next() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state) / 0x100000000
}

// SeededShuffle returns a shuffled copy of items. The same seed always
// gives the same order.
func SeededShuffle[T any](seed string, items []T) []T {
	out := append([]T(nil), items...)
	rng := &lcg{state: seedState(seed)}
	for i := len(out); i != 0; {
		j := int(rng.next() * float64(i))
		i--
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sample picks up to n items. With a seed the pick is deterministic;
// without one the first n are returned.
func Sample[T any](items []T, n int, seed string) []T {
	if n <= 0 {
		return nil
	}
	if len(items) <= n {
		return append([]T(nil), items...)
	}
	if seed == "" {
		return append([]T(nil), items[:n]...)
	}
	out := append([]T(nil), items...)
	rng := &lcg{state: seedState(seed)}
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}
