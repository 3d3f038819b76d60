package deploy

import "github.com/planlytics/planforge/internal/gateway"

// StepResult summarizes one deployment stage. Requires lists the stages that
// must precede this one and is populated on dry-run previews.
type StepResult struct {
	Name     string   `json:"name"`
	Success  bool     `json:"success"`
	Planned  int      `json:"planned"`
	Created  int      `json:"created"`
	Reused   int      `json:"reused"`
	Failed   int      `json:"failed"`
	Requires []string `json:"requires,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// Report is the structured outcome of a deployment run. It always describes
// what happened, never a stack trace.
type Report struct {
	Success bool            `json:"success"`
	DryRun  bool            `json:"dry_run"`
	Created int             `json:"created"`
	Reused  int             `json:"reused"`
	Failed  int             `json:"failed"`
	Steps   []StepResult    `json:"steps"`
	Audit   []gateway.Entry `json:"audit,omitempty"`
}

func (r *Report) addStep(step StepResult) {
	r.Steps = append(r.Steps, step)
	r.Created += step.Created
	r.Reused += step.Reused
	r.Failed += step.Failed
	if !step.Success {
		r.Success = false
	}
}
