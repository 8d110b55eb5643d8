package bandit

// ArmStats summarizes the rewards observed on one option so far.
type ArmStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// armHistory accumulates per-option running means.
type armHistory struct {
	sums  []float64
	stats []ArmStats
}

func newArmHistory(k int) *armHistory {
	return &armHistory{
		sums:  make([]float64, k),
		stats: make([]ArmStats, k),
	}
}

func (h *armHistory) add(arm int, reward float64) {
	h.sums[arm] += reward
	h.stats[arm].Count++
	h.stats[arm].Mean = h.sums[arm] / float64(h.stats[arm].Count)
}

func (h *armHistory) snapshot() []ArmStats {
	out := make([]ArmStats, len(h.stats))
	copy(out, h.stats)
	return out
}
