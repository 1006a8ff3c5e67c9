package bracket

import "math/rand/v2"

// Rand is the randomness the engine needs: a uniform shuffle for seeding and
// a coin flip for ties. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Shuffle(n int, swap func(i, j int))
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }
func (globalRand) IntN(n int) int                     { return rand.IntN(n) }

// DefaultRand uses the process-wide generator.
var DefaultRand Rand = globalRand{}
