package strategy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"banditArena/business/bandit"
	"banditArena/pkg/logger"
	"banditArena/pkg/metrics"
)

var ErrInvalidProgram = errors.New("invalid policy program")

const (
	RuleUCB1          = "ucb1"
	RuleGreedy        = "greedy"
	RuleEpsilonGreedy = "epsilon_greedy"
)

// Program is the policy the model writes once per trial and the planner
// executes locally every round.
type Program struct {
	Rule        string  `yaml:"rule" validate:"omitempty,oneof=ucb1 greedy epsilon_greedy"`
	Warmup      int     `yaml:"warmup" validate:"gte=0,lte=20"`
	Exploration float64 `yaml:"exploration" validate:"gte=0,lte=50"`
	Epsilon     float64 `yaml:"epsilon" validate:"gte=0,lte=1"`
}

var (
	fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
	validate    = validator.New()
)

// ParseProgram extracts a policy program from a model reply. The reply may
// wrap the YAML in a fenced block. Unknown keys are rejected.
func ParseProgram(reply string) (Program, error) {
	body := reply
	if m := fencedBlock.FindStringSubmatch(reply); m != nil {
		body = m[1]
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Program{}, fmt.Errorf("%w: empty reply", ErrInvalidProgram)
	}

	dec := yaml.NewDecoder(bytes.NewBufferString(body))
	dec.KnownFields(true)

	var p Program
	if err := dec.Decode(&p); err != nil {
		return Program{}, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	if p.Rule == "" {
		p.Rule = RuleUCB1
	}
	if err := validate.Struct(p); err != nil {
		return Program{}, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	return p, nil
}

// choose runs the program for one round. ok is false when the program cannot
// decide, so the caller falls back.
func (p Program) choose(obs bandit.Observation, rng *rand.Rand) (int, bool) {
	cands := obs.Candidates()
	if len(cands) == 0 {
		return 0, false
	}

	for _, i := range cands {
		if obs.Arms[i].Count < p.Warmup {
			return i, true
		}
	}

	if p.Rule == RuleEpsilonGreedy && rng.Float64() < p.Epsilon {
		return cands[rng.Intn(len(cands))], true
	}

	best, bestScore := -1, math.Inf(-1)
	for _, i := range cands {
		s := p.score(obs.Arms[i], obs.Round)
		if math.IsNaN(s) {
			return 0, false
		}
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, best >= 0
}

func (p Program) score(st bandit.ArmStats, round int) float64 {
	if st.Count == 0 {
		return math.Inf(1)
	}
	if p.Rule != RuleUCB1 {
		return st.Mean
	}
	return st.Mean + math.Sqrt(p.Exploration*math.Log(float64(round+1))/float64(st.Count))
}

// Planner asks the model for a policy program once per trial and executes it
// locally. An invalid program, or a round the program cannot decide, is
// played by UCB1. A failed request is returned to the caller.
type Planner struct {
	client ChatClient
	model  string
	rng    *rand.Rand

	program   *Program
	requested bool
	fallback  bandit.UCB1
	fallbacks int
}

// NewPlanner returns a planner for a single trial.
func NewPlanner(client ChatClient, model string, seed int64) *Planner {
	return &Planner{
		client: client,
		model:  model,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (p *Planner) Name() string { return "planner/" + p.model }

// Program returns the program in use, or nil while falling back.
func (p *Planner) Program() *Program { return p.program }

// Fallbacks counts rounds played by UCB1.
func (p *Planner) Fallbacks() int { return p.fallbacks }

func (p *Planner) Choose(ctx context.Context, obs bandit.Observation) (int, error) {
	if !p.requested {
		if err := p.plan(ctx, len(obs.Arms)); err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("context error: %w", ctx.Err())
			}
			if !errors.Is(err, ErrInvalidProgram) {
				return 0, err
			}
			logger.Warn("policy program rejected, using ucb1", "model", p.model, "trace", bandit.TraceIDFromContext(ctx), "error", err)
		}
		p.requested = true
	}

	if p.program != nil {
		if a, ok := p.program.choose(obs, p.rng); ok {
			return a, nil
		}
	}
	p.fallbacks++
	metrics.StrategyFallbacks.WithLabelValues("planner").Inc()
	return p.fallback.Choose(ctx, obs)
}

func (p *Planner) plan(ctx context.Context, arms int) error {
	reply, err := complete(ctx, p.client, p.model, plannerPrompt(arms), 0.1)
	if err != nil {
		return err
	}
	prog, err := ParseProgram(reply)
	if err != nil {
		return err
	}
	p.program = &prog
	return nil
}

func plannerPrompt(arms int) string {
	return fmt.Sprintf(`You are writing a policy for a %d-armed bandit that a program will run every round.
Reply with YAML only, no explanation, using exactly these keys:
  rule: one of ucb1, greedy, epsilon_greedy
  warmup: pulls of every arm before scoring (integer, 0 to 20)
  exploration: c in mean + sqrt(c*ln(t+1)/count), used by ucb1 (0 to 50)
  epsilon: exploration probability, used by epsilon_greedy (0 to 1)
Explore every arm at least once, then follow the UCB1 idea with c=2.`, arms)
}
