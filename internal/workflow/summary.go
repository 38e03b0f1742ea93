package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"splice/internal/fallback"
	"splice/internal/fileutil"
	"splice/internal/stage"
)

// StepSummary reports how one stage ended.
type StepSummary struct {
	Status    string           `json:"status"`
	Provider  string           `json:"provider,omitempty"`
	Attempts  int              `json:"attempts"`
	ElapsedMs int64            `json:"elapsedMs"`
	Metrics   map[string]int64 `json:"metrics,omitempty"`
	Fallbacks []Fallback       `json:"fallbacks,omitempty"`
}

// Fallback records a provider that was abandoned before the stage settled.
type Fallback struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

// AIDecisions aggregates the automated editing choices of a run.
type AIDecisions struct {
	Total  int              `json:"total"`
	ByType map[string]int   `json:"byType"`
	Items  []stage.Decision `json:"items"`
}

// Summary is the run-summary.json document and the JSON printed by the CLI.
type Summary struct {
	OK             bool                   `json:"ok"`
	ProjectID      string                 `json:"projectId"`
	RunID          string                 `json:"runId,omitempty"`
	StartedAt      string                 `json:"startedAt,omitempty"`
	CompletedAt    string                 `json:"completedAt,omitempty"`
	Steps          map[string]StepSummary `json:"steps,omitempty"`
	AIDecisions    *AIDecisions           `json:"aiDecisions,omitempty"`
	Error          string                 `json:"error,omitempty"`
	ErrorKind      string                 `json:"errorKind,omitempty"`
	FailedStep     string                 `json:"failedStep,omitempty"`
	CompletedSteps []string               `json:"completedSteps"`
}

// MarshalJSON always emits failedStep on a failed run, even when the run
// failed before any stage started.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	if s.CompletedSteps == nil {
		s.CompletedSteps = []string{}
	}
	if s.OK {
		return json.Marshal(plain(s))
	}
	return json.Marshal(struct {
		plain
		FailedStep string `json:"failedStep"`
	}{plain: plain(s), FailedStep: s.FailedStep})
}

func newAIDecisions() *AIDecisions {
	return &AIDecisions{ByType: map[string]int{}, Items: []stage.Decision{}}
}

func (d *AIDecisions) add(decisions []stage.Decision) {
	for _, dec := range decisions {
		d.Items = append(d.Items, dec)
		d.ByType[dec.Type]++
		d.Total++
	}
}

func fallbacksFrom(history []fallback.ProviderFailure) []Fallback {
	if len(history) == 0 {
		return nil
	}
	out := make([]Fallback, 0, len(history))
	for _, h := range history {
		out = append(out, Fallback{Provider: h.Provider, Reason: h.Reason, Attempts: len(h.Attempts)})
	}
	return out
}

// WriteSummary persists the summary atomically.
func WriteSummary(path string, s *Summary) error {
	return fileutil.WriteJSONAtomic(path, s)
}

// ReadSummary loads the last run summary. It returns nil when no run has
// finished yet.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode run summary: %w", err)
	}
	return &s, nil
}
