package linker

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LagReport records how one lag's computation went.
type LagReport struct {
	Lag     int       `yaml:"lag"`
	Column  string    `yaml:"column,omitempty"`
	Failed  bool      `yaml:"failed,omitempty"`
	Error   string    `yaml:"error,omitempty"`
	Omitted bool      `yaml:"omitted,omitempty"`
	Gaps    GapCounts `yaml:"gaps,omitempty"`
}

// Report is the structured run report: every recovered gap and every
// failed or omitted lag is enumerated so nothing is lost silently.
type Report struct {
	RunID            string        `yaml:"run_id"`
	StartedAt        time.Time     `yaml:"started_at"`
	FinishedAt       time.Time     `yaml:"finished_at"`
	Rows             int           `yaml:"rows"`
	Lags             []int         `yaml:"lags"`
	RequiredYears    []int         `yaml:"required_years"`
	UnavailableYears []int         `yaml:"unavailable_years,omitempty"`
	Gaps             GapCounts     `yaml:"gaps,omitempty"`
	FailedLags       []int         `yaml:"failed_lags,omitempty"`
	OmittedLags      []int         `yaml:"omitted_lags,omitempty"`
	PerLag           []LagReport   `yaml:"per_lag"`
	Duration         time.Duration `yaml:"duration"`
}

// Complete reports whether every requested lag produced a merged column.
func (r *Report) Complete() bool {
	return len(r.FailedLags) == 0 && len(r.OmittedLags) == 0
}

// WriteYAML persists the report next to the run's output.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "linker: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "linker: write report")
	}
	return nil
}
