package domain

// BanditParams is the flat, exchangeable form of one bandit configuration.
// Only the fields of the named variant are meaningful.
type BanditParams struct {
	Variant  string    `json:"variant"`
	GroupID  int       `json:"group_id"`
	NArms    int       `json:"n_arms"`
	MeanLow  float64   `json:"mean_low"`
	MeanHigh float64   `json:"mean_high"`
	Sigma    float64   `json:"sigma"`
	Seed     *int64    `json:"seed,omitempty"`
	Means    []float64 `json:"means,omitempty"`

	DriftRate      float64   `json:"drift_rate,omitempty"`
	NContexts      int       `json:"n_contexts,omitempty"`
	SwitchInterval int       `json:"switch_interval,omitempty"`
	SleepProb      float64   `json:"sleep_prob,omitempty"`
	SleepProbs     []float64 `json:"sleep_probs,omitempty"`
}

// TrialRecord is the structured-text form of an assembled trial.
type TrialRecord struct {
	Params       BanditParams `json:"params"`
	NRounds      int          `json:"n_rounds"`
	NArms        int          `json:"n_arms"`
	Means        []float64    `json:"means"`
	Rewards      [][]float64  `json:"rewards"`
	Availability [][]bool     `json:"availability,omitempty"`
	BestArm      int          `json:"best_arm"`
	BestMean     float64      `json:"best_mean"`
	Degenerate   bool         `json:"degenerate,omitempty"`

	DriftRate      *float64 `json:"drift_rate,omitempty"`
	Contexts       []string `json:"contexts,omitempty"`
	Adversarial    bool     `json:"adversarial,omitempty"`
	SwitchInterval int      `json:"switch_interval,omitempty"`
	SleepProb      *float64 `json:"sleep_prob,omitempty"`
}

// CurvePair holds the per-round trace of one strategy on one trial.
// All four slices have the same length.
type CurvePair struct {
	Actions   []int     `json:"actions"`
	Rewards   []float64 `json:"rewards"`
	CumReward []float64 `json:"cum_reward"`
	CumRegret []float64 `json:"cum_regret"`
}

// FinalReward returns the last cumulative reward, or 0 for an empty curve.
func (c CurvePair) FinalReward() float64 {
	if len(c.CumReward) == 0 {
		return 0
	}
	return c.CumReward[len(c.CumReward)-1]
}

// FinalRegret returns the last cumulative regret, or 0 for an empty curve.
func (c CurvePair) FinalRegret() float64 {
	if len(c.CumRegret) == 0 {
		return 0
	}
	return c.CumRegret[len(c.CumRegret)-1]
}
