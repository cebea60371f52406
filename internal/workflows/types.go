package workflows

import (
	"time"

	"github.com/testforge/pomsuite/internal/suite"
)

// SuiteInput is the input for SuiteWorkflow
type SuiteInput struct {
	RunID       string `json:"run_id"`
	TriggeredBy string `json:"triggered_by,omitempty"`

	// Filters select scenarios by name or group; empty runs the catalogue
	Filters []string `json:"filters,omitempty"`

	// ScenarioTimeout bounds one scenario including setup and teardown
	ScenarioTimeout time.Duration `json:"scenario_timeout,omitempty"`
}

// SuiteOutput is the output of SuiteWorkflow
type SuiteOutput struct {
	RunID         string         `json:"run_id"`
	Status        string         `json:"status"`
	Results       []suite.Result `json:"results"`
	Summary       suite.Summary  `json:"summary"`
	Error         string         `json:"error,omitempty"`
	CompletedAt   time.Time      `json:"completed_at"`
	TotalDuration time.Duration  `json:"total_duration"`
}

// ScenarioInput is the input for the scenario activity
type ScenarioInput struct {
	RunID string `json:"run_id"`
	Name  string `json:"name"`
}

// Run statuses
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)
