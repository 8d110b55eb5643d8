package bandit

import (
	"math"
	"math/rand"
)

// DefaultExploration is the c of UCB1's sqrt(c * ln(t+1) / n) bonus.
const DefaultExploration = 2.0

// ucb1Score = mean + sqrt(c * ln(t+1) / n); unplayed options score +Inf.
func ucb1Score(s ArmStats, round int, c float64) float64 {
	if s.Count == 0 {
		return math.Inf(1)
	}
	return s.Mean + math.Sqrt(c*math.Log(float64(round+1))/float64(s.Count))
}

// thompsonScore samples a Gaussian posterior around the running mean whose
// spread shrinks with the number of pulls. Unplayed options score +Inf.
func thompsonScore(s ArmStats, sigma float64, rng *rand.Rand) float64 {
	if s.Count == 0 {
		return math.Inf(1)
	}
	std := sigma / math.Sqrt(float64(s.Count+1))
	return s.Mean + rng.NormFloat64()*std
}

// argmaxOver returns the candidate with the highest score; ties go to the
// lowest index. It returns -1 for an empty candidate list.
func argmaxOver(cands []int, score func(i int) float64) int {
	best, bestScore := -1, math.Inf(-1)
	for _, i := range cands {
		s := score(i)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
