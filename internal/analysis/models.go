package analysis

import (
	"time"

	"github.com/user/trackway_analyzer_go/internal/report"
)

// StageResult is the outcome of one stage's lifecycle in a run.
type StageResult struct {
	Key       string
	Label     string
	State     State
	Err       error
	Footer    []string
	Artifacts []string
	Tables    []report.Table
}

// Failed reports whether the stage aborted.
func (r StageResult) Failed() bool { return r.State == StateAborted }

// RunReport holds every stage result of a run plus the combined report.
type RunReport struct {
	Name       string
	Started    time.Time
	Duration   time.Duration
	SiteMaps   int
	Stages     []StageResult
	ReportPath string
	ReportErr  error
}

// Failures is the number of aborted stages.
func (r *RunReport) Failures() int {
	n := 0
	for _, st := range r.Stages {
		if st.Failed() {
			n++
		}
	}
	return n
}

// Stage returns the result for key.
func (r *RunReport) Stage(key string) (StageResult, bool) {
	for _, st := range r.Stages {
		if st.Key == key {
			return st, true
		}
	}
	return StageResult{}, false
}

func (r *RunReport) summary() report.RunSummary {
	out := report.RunSummary{
		Name:     r.Name,
		Started:  r.Started,
		Duration: r.Duration,
		SiteMaps: r.SiteMaps,
	}
	for _, st := range r.Stages {
		ss := report.StageSummary{
			Key:    st.Key,
			Label:  st.Label,
			State:  string(st.State),
			Footer: st.Footer,
			Tables: st.Tables,
		}
		if st.Err != nil {
			ss.Error = st.Err.Error()
		}
		out.Stages = append(out.Stages, ss)
	}
	return out
}
