package portfolio

import (
	"math/rand/v2"

	"github.com/Alias1177/Allocator/internal/model"
)

// DrawWeights draws n independent uniform [0,1) values and normalizes them to sum to 1.
// This is not a uniform sample of the simplex; it favours balanced allocations.
func DrawWeights(rng *rand.Rand, n int) model.WeightVector {
	w := make(model.WeightVector, n)
	for {
		for i := range w {
			w[i] = rng.Float64()
		}
		sum := w.Sum()
		if sum == 0 {
			continue
		}
		for i := range w {
			w[i] /= sum
		}
		return w
	}
}

// trialRand returns the random source of one simulation trial.
// Every trial has its own stream so results do not depend on scheduling.
func trialRand(seed uint64, trial int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(trial)))
}
