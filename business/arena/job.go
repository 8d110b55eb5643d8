package arena

import (
	"fmt"
	"strings"

	"banditArena/business/bandit"
)

// Model is one endpoint under evaluation.
type Model struct {
	Name string
	ID   string
}

// Job is every repeat of one parameter group for one model.
type Job struct {
	Model   Model
	Variant bandit.Variant
	Group   int
	Config  bandit.Config
}

// TaskUID identifies the job across runs: model|variant|group.
func (j Job) TaskUID() string {
	return TaskUID(j.Model.Name, string(j.Variant), j.Group)
}

func TaskUID(model, task string, group int) string {
	return fmt.Sprintf("%s|%s|%d", model, task, group)
}

// ParseTaskUID splits a task uid. Model names may contain '|'.
func ParseTaskUID(uid string) (model, task string, group int, err error) {
	i := strings.LastIndex(uid, "|")
	if i < 0 {
		return "", "", 0, fmt.Errorf("malformed task uid %q", uid)
	}
	j := strings.LastIndex(uid[:i], "|")
	if j < 0 {
		return "", "", 0, fmt.Errorf("malformed task uid %q", uid)
	}
	if _, err := fmt.Sscanf(uid[i+1:], "%d", &group); err != nil {
		return "", "", 0, fmt.Errorf("malformed task uid %q: %w", uid, err)
	}
	return uid[:j], uid[j+1 : i], group, nil
}

// BuildJobs samples nGroups configurations per variant and crosses them with
// every model. All models see the same configurations.
func BuildJobs(models []Model, variants []bandit.Variant, sampler *bandit.ParamSampler, nGroups int, seed int64) ([]Job, error) {
	var jobs []Job
	for _, v := range variants {
		cfgs, err := sampler.Sample(v, nGroups, seed)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", v, err)
		}
		for _, m := range models {
			for g, cfg := range cfgs {
				jobs = append(jobs, Job{Model: m, Variant: cfg.Variant(), Group: g, Config: cfg})
			}
		}
	}
	return jobs, nil
}
