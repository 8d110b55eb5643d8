package arena

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"banditArena/domain"
)

// Row aggregates the successful repeats of one (task, model) pair.
type Row struct {
	Task        string
	Model       string
	N           int
	AMean       float64
	AStd        float64
	BMean       float64
	BStd        float64
	Improvement float64

	// Baseline is empty when no repeat of the pair scored a baseline.
	Baseline     string
	BaselineMean float64
	BaselineStd  float64
}

// Aggregate groups successful results by task and model, leaving out smoke
// runs. Rows are ordered by task, then model.
func Aggregate(results []domain.TrialResult) []Row {
	type key struct{ task, model string }
	as := map[key][]float64{}
	bs := map[key][]float64{}
	refs := map[key][]float64{}
	refNames := map[key]string{}
	for _, res := range results {
		if res.Failed() || res.Task == SmokeTask {
			continue
		}
		k := key{res.Task, res.Model}
		as[k] = append(as[k], res.AReward)
		bs[k] = append(bs[k], res.BReward)
		if res.Baseline != "" {
			refs[k] = append(refs[k], res.BaselineReward)
			refNames[k] = res.Baseline
		}
	}

	rows := make([]Row, 0, len(as))
	for k, a := range as {
		b := bs[k]
		row := Row{Task: k.task, Model: k.model, N: len(a), Baseline: refNames[k]}
		row.AMean, row.AStd = meanStd(a)
		row.BMean, row.BStd = meanStd(b)
		row.BaselineMean, row.BaselineStd = meanStd(refs[k])
		row.Improvement = Improvement(row.AMean, row.BMean)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Task != rows[j].Task {
			return rows[i].Task < rows[j].Task
		}
		return rows[i].Model < rows[j].Model
	})
	return rows
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

// CountFailed returns how many results exhausted their retries.
func CountFailed(results []domain.TrialResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}

type ReportMeta struct {
	RunID   string
	Elapsed time.Duration
	Models  []string
	Failed  int
}

// WriteMarkdown renders the final summary: one table per task with
// mean ± std of both strategies.
func WriteMarkdown(w io.Writer, rows []Row, meta ReportMeta) error {
	p := &errWriter{w: w}

	p.printf("# Bandit arena summary\n\n")
	p.printf("## Run\n\n")
	if meta.RunID != "" {
		p.printf("- Run ID: %s\n", meta.RunID)
	}
	if meta.Elapsed > 0 {
		p.printf("- Elapsed: %.1f min\n", meta.Elapsed.Minutes())
	}
	p.printf("- Models: %d\n", len(meta.Models))
	p.printf("- Failed repeats: %d\n\n", meta.Failed)

	if len(meta.Models) > 0 {
		p.printf("## Models\n\n")
		for _, m := range meta.Models {
			p.printf("- %s\n", m)
		}
		p.printf("\n")
	}

	withBaseline := HasBaseline(rows)

	p.printf("## Results\n\n")
	task := ""
	for _, r := range rows {
		if r.Task != task {
			if task != "" {
				p.printf("\n")
			}
			task = r.Task
			p.printf("### %s\n\n", task)
			if withBaseline {
				p.printf("| Model | Strategy A | Strategy B | Baseline | Improvement (%%) | Repeats |\n")
				p.printf("|-------|------------|------------|----------|-----------------|---------|\n")
			} else {
				p.printf("| Model | Strategy A | Strategy B | Improvement (%%) | Repeats |\n")
				p.printf("|-------|------------|------------|-----------------|---------|\n")
			}
		}
		if withBaseline {
			p.printf("| %s | %.1f±%.1f | %.1f±%.1f | %s | %.1f%% | %d |\n",
				r.Model, r.AMean, r.AStd, r.BMean, r.BStd, baselineCell(r), r.Improvement, r.N)
			continue
		}
		p.printf("| %s | %.1f±%.1f | %.1f±%.1f | %.1f%% | %d |\n",
			r.Model, r.AMean, r.AStd, r.BMean, r.BStd, r.Improvement, r.N)
	}
	if task != "" {
		p.printf("\n")
	}
	return p.err
}

// HasBaseline reports whether any row carries baseline scores.
func HasBaseline(rows []Row) bool {
	for _, r := range rows {
		if r.Baseline != "" {
			return true
		}
	}
	return false
}

func baselineCell(r Row) string {
	if r.Baseline == "" {
		return "-"
	}
	return fmt.Sprintf("%s %.1f±%.1f", r.Baseline, r.BaselineMean, r.BaselineStd)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
