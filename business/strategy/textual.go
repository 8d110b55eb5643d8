package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"banditArena/business/bandit"
	"banditArena/pkg/logger"
	"banditArena/pkg/metrics"
)

var firstInt = regexp.MustCompile(`-?\d+`)

// Textual asks the model for the next option every round, giving it only a
// statistics summary. Unusable replies fall back to a uniform random
// available option.
type Textual struct {
	client      ChatClient
	model       string
	temperature float32
	rng         *rand.Rand

	fallbacks int
}

func NewTextual(client ChatClient, model string, seed int64) *Textual {
	return &Textual{
		client:      client,
		model:       model,
		temperature: 0.1,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (s *Textual) Name() string { return "textual/" + s.model }

// Fallbacks counts rounds decided by the random fallback.
func (s *Textual) Fallbacks() int { return s.fallbacks }

func (s *Textual) Choose(ctx context.Context, obs bandit.Observation) (int, error) {
	cands := obs.Candidates()
	if len(cands) == 0 {
		return 0, fmt.Errorf("round %d: no option available", obs.Round)
	}

	reply, err := complete(ctx, s.client, s.model, textualPrompt(obs), s.temperature)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("context error: %w", ctx.Err())
		}
		logger.Debug("textual strategy fell back", "model", s.model, "trace", bandit.TraceIDFromContext(ctx), "round", obs.Round, "error", err)
		return s.fallback(cands), nil
	}

	a, ok := ParseAction(reply, obs)
	if !ok {
		return s.fallback(cands), nil
	}
	return a, nil
}

func (s *Textual) fallback(cands []int) int {
	s.fallbacks++
	metrics.StrategyFallbacks.WithLabelValues("textual").Inc()
	return cands[s.rng.Intn(len(cands))]
}

// ParseAction reads the first integer in reply and accepts it when it names
// an available option.
func ParseAction(reply string, obs bandit.Observation) (int, bool) {
	m := firstInt.FindString(reply)
	if m == "" {
		return 0, false
	}
	a, err := strconv.Atoi(m)
	if err != nil || a < 0 || a >= len(obs.Arms) || !obs.IsAvailable(a) {
		return 0, false
	}
	return a, true
}

func textualPrompt(obs bandit.Observation) string {
	k := len(obs.Arms)
	var b strings.Builder
	fmt.Fprintf(&b, "You are playing a %d-armed bandit. Current round t=%d.\n", k, obs.Round)
	b.WriteString("Arm statistics:\n")
	for i, st := range obs.Arms {
		fmt.Fprintf(&b, "  arm %d: count=%d mean=%.3f\n", i, st.Count, st.Mean)
	}
	if obs.Context != "" {
		fmt.Fprintf(&b, "Context this round: %s\n", obs.Context)
	}
	if obs.Available != nil {
		fmt.Fprintf(&b, "Arms available this round: %v\n", obs.Candidates())
	}
	fmt.Fprintf(&b, "Reply with the index of the next arm only, an integer between 0 and %d. No explanation, no code.", k-1)
	return b.String()
}
