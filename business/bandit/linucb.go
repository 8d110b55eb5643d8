package bandit

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
)

// linArm holds the learned part D of A = I + D and the reward vector b.
type linArm struct {
	D     [][]float64
	B     []float64
	Count int
}

// LinUCB is a disjoint LinUCB over a bias feature and a one-hot encoding of
// the round's context label. Decay > 0 softly forgets old rounds, which helps
// on drifting trials.
type LinUCB struct {
	Alpha float64
	Decay float64

	dim     int
	slots   map[string]int
	arms    []*linArm
	nextIdx int
}

// NewLinUCB sizes the feature vector for up to contexts distinct labels.
func NewLinUCB(alpha float64, contexts int) *LinUCB {
	if contexts < 1 {
		contexts = 1
	}
	return &LinUCB{
		Alpha: alpha,
		dim:   1 + contexts,
		slots: make(map[string]int),
	}
}

func (l *LinUCB) Name() string {
	return fmt.Sprintf("linucb (alpha=%.2f)", l.Alpha)
}

func (l *LinUCB) ensureArms(k int) {
	for len(l.arms) < k {
		l.arms = append(l.arms, &linArm{D: zeros(l.dim), B: make([]float64, l.dim)})
	}
}

// slot maps a label to its one-hot position; labels beyond capacity are hashed.
func (l *LinUCB) slot(label string) int {
	if idx, ok := l.slots[label]; ok {
		return idx
	}
	capacity := l.dim - 1
	if l.nextIdx < capacity {
		l.slots[label] = l.nextIdx
		l.nextIdx++
		return l.slots[label]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return int(h.Sum32() % uint32(capacity))
}

func (l *LinUCB) features(label string) []float64 {
	x := make([]float64, l.dim)
	x[0] = 1
	x[1+l.slot(label)] = 1
	return x
}

func (l *LinUCB) Choose(_ context.Context, obs Observation) (int, error) {
	l.ensureArms(len(obs.Arms))
	x := l.features(obs.Context)

	var scoreErr error
	a := argmaxOver(obs.Candidates(), func(i int) float64 {
		s, err := l.score(l.arms[i], x)
		if err != nil {
			scoreErr = err
			return math.Inf(-1)
		}
		return s
	})
	if scoreErr != nil {
		return 0, scoreErr
	}
	if a < 0 {
		return 0, errNoCandidates
	}
	return a, nil
}

// score = theta.x + alpha * sqrt(x^T A^-1 x), theta = A^-1 b
func (l *LinUCB) score(arm *linArm, x []float64) (float64, error) {
	AInv, err := invert(plusIdentity(arm.D))
	if err != nil {
		return 0, err
	}
	theta := matVecMul(AInv, arm.B)
	uncertainty := math.Sqrt(dot(x, matVecMul(AInv, x)))
	return dot(theta, x) + l.Alpha*uncertainty, nil
}

func (l *LinUCB) Observe(obs Observation, action int, reward float64) {
	l.ensureArms(len(obs.Arms))
	arm := l.arms[action]
	x := l.features(obs.Context)

	if l.Decay > 0 {
		scale(arm.D, arm.B, 1-l.Decay)
	}
	addOuter(arm.D, x)
	addScaled(arm.B, x, reward)
	arm.Count++
}
