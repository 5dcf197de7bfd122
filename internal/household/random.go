package household

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomSource is a per-entity generator. Appliances and houses never share one.
type RandomSource struct {
	src rand.Source
	rng *rand.Rand
}

func NewRandomSource(seed uint64) *RandomSource {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &RandomSource{src: src, rng: rand.New(src)}
}

// NewUnseededRandomSource is used when runs do not need to be reproducible.
func NewUnseededRandomSource() *RandomSource {
	return NewRandomSource(rand.Uint64())
}

func (r *RandomSource) Uniform(min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: r.src}.Rand()
}

// Fluctuate returns value scaled by a uniform factor in [1-fraction, 1+fraction).
func (r *RandomSource) Fluctuate(value, fraction float64) float64 {
	return value * (1 + r.Uniform(-fraction, fraction))
}

func (r *RandomSource) Bernoulli(p float64) bool {
	p = clamp(p, 0, 1)
	return distuv.Bernoulli{P: p, Src: r.src}.Rand() == 1
}

// IntRange draws uniformly from [min, max], both ends included.
func (r *RandomSource) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.rng.IntN(max-min+1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
