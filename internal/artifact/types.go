package artifact

import (
	"encoding/json"
	"strings"
)

// Word is one transcribed token with its timing.
type Word struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Normalized string  `json:"normalized,omitempty"`
	StartUs    int64   `json:"startUs"`
	EndUs      int64   `json:"endUs"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Segment groups words into a phrase. Words may be referenced by id, embedded,
// or both.
type Segment struct {
	ID         string   `json:"id"`
	StartUs    int64    `json:"startUs"`
	EndUs      int64    `json:"endUs"`
	Text       string   `json:"text,omitempty"`
	WordIDs    []string `json:"wordIds,omitempty"`
	Words      []Word   `json:"words,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// Transcript is the output of the transcribe stage.
type Transcript struct {
	Language    string    `json:"language,omitempty"`
	DurationUs  int64     `json:"durationUs,omitempty"`
	Words       []Word    `json:"words"`
	Segments    []Segment `json:"segments"`
	Provider    string    `json:"provider,omitempty"`
	Placeholder bool      `json:"placeholder,omitempty"`
}

// WordIDs returns every word id declared by the transcript, including words
// embedded in segments.
func (t *Transcript) WordIDs() IDSet {
	ids := make(IDSet, len(t.Words))
	for _, w := range t.Words {
		ids.Add(w.ID)
	}
	for _, s := range t.Segments {
		for _, w := range s.Words {
			ids.Add(w.ID)
		}
	}
	return ids
}

// SegmentText returns the display text of seg: its own text when set,
// otherwise its embedded words, otherwise the transcript words it
// references by id.
func (t *Transcript) SegmentText(seg Segment) string {
	if text := strings.TrimSpace(seg.Text); text != "" {
		return text
	}
	words := seg.Words
	if len(words) == 0 && len(seg.WordIDs) > 0 {
		byID := make(map[string]Word, len(t.Words))
		for _, w := range t.Words {
			byID[w.ID] = w
		}
		for _, id := range seg.WordIDs {
			if w, ok := byID[id]; ok {
				words = append(words, w)
			}
		}
	}
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if text := strings.TrimSpace(w.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// RemoveRange is a span of source media the cut plan drops.
type RemoveRange struct {
	StartUs    int64    `json:"startUs"`
	EndUs      int64    `json:"endUs"`
	Reason     string   `json:"reason,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	WordIDs    []string `json:"wordIds,omitempty"`
}

// Rationale explains one remove range, addressed by index.
type Rationale struct {
	RangeIndex int    `json:"rangeIndex"`
	Summary    string `json:"summary"`
}

// CutPlan is the output of the plan-cuts stage.
type CutPlan struct {
	RemoveRanges []RemoveRange `json:"removeRanges"`
	Rationale    []Rationale   `json:"rationale,omitempty"`
	Provider     string        `json:"provider,omitempty"`
	Model        string        `json:"model,omitempty"`
	Placeholder  bool          `json:"placeholder,omitempty"`
}

// Placement positions a template on the source timeline.
type Placement struct {
	ID         string          `json:"id"`
	TemplateID string          `json:"templateId"`
	Category   string          `json:"category,omitempty"`
	StartUs    int64           `json:"startUs"`
	EndUs      int64           `json:"endUs"`
	Confidence float64         `json:"confidence,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	Rationale  string          `json:"rationale,omitempty"`
}

// TemplatePlan is the output of the plan-templates stage.
type TemplatePlan struct {
	Placements  []Placement `json:"placements"`
	Provider    string      `json:"provider,omitempty"`
	Model       string      `json:"model,omitempty"`
	Placeholder bool        `json:"placeholder,omitempty"`
}

// PlacementIDs returns the ids of every placement in the plan.
func (p *TemplatePlan) PlacementIDs() IDSet {
	ids := make(IDSet, len(p.Placements))
	for _, pl := range p.Placements {
		ids.Add(pl.ID)
	}
	return ids
}

// Asset kinds.
const (
	AssetImage = "image"
	AssetVideo = "video"
)

// Suggestion proposes stock media for an interval of the source.
type Suggestion struct {
	ID          string  `json:"id"`
	Provider    string  `json:"provider"`
	Kind        string  `json:"kind"`
	Query       string  `json:"query"`
	StartUs     int64   `json:"startUs"`
	EndUs       int64   `json:"endUs"`
	LocalPath   string  `json:"localPath,omitempty"`
	PlacementID string  `json:"placementId,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Rationale   string  `json:"rationale,omitempty"`
}

// AssetSuggestions is produced by suggest-assets and rewritten with local
// paths by resolve-assets.
type AssetSuggestions struct {
	Suggestions []Suggestion `json:"suggestions"`
	Provider    string       `json:"provider,omitempty"`
	Placeholder bool         `json:"placeholder,omitempty"`
}

// IDs returns the ids of every suggestion.
func (a *AssetSuggestions) IDs() IDSet {
	ids := make(IDSet, len(a.Suggestions))
	for _, s := range a.Suggestions {
		ids.Add(s.ID)
	}
	return ids
}

// Resolved reports whether every suggestion has a local path.
func (a *AssetSuggestions) Resolved() bool {
	for _, s := range a.Suggestions {
		if s.LocalPath == "" {
			return false
		}
	}
	return true
}

// Track is a timeline lane.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Order  int    `json:"order"`
	Locked bool   `json:"locked"`
}

// Clip places a span of the source on the output timeline.
type Clip struct {
	ClipID        string         `json:"clipId"`
	TrackID       string         `json:"trackId"`
	ClipType      string         `json:"clipType"`
	StartUs       int64          `json:"startUs"`
	EndUs         int64          `json:"endUs"`
	SourceStartUs int64          `json:"sourceStartUs"`
	SourceEndUs   int64          `json:"sourceEndUs"`
	SourceRef     string         `json:"sourceRef"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// Overlay kinds.
const (
	OverlayTemplate = "template"
	OverlayAsset    = "asset"
	OverlayCaption  = "caption"
)

// Overlay places a template, asset, or caption on the output timeline.
type Overlay struct {
	OverlayID string `json:"overlayId"`
	TrackID   string `json:"trackId"`
	Kind      string `json:"kind"`
	RefID     string `json:"refId"`
	StartUs   int64  `json:"startUs"`
	EndUs     int64  `json:"endUs"`
	Text      string `json:"text,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
}

// Timeline is the assembled rough cut.
type Timeline struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"projectId"`
	Version          int64     `json:"version"`
	Status           string    `json:"status"`
	FPS              int64     `json:"fps"`
	DurationUs       int64     `json:"durationUs"`
	SourceDurationUs int64     `json:"sourceDurationUs"`
	CreatedAt        string    `json:"createdAt"`
	UpdatedAt        string    `json:"updatedAt"`
	Tracks           []Track   `json:"tracks"`
	Clips            []Clip    `json:"clips"`
	Overlays         []Overlay `json:"overlays,omitempty"`
}

// Progress statuses.
const (
	ProgressRunning = "running"
	ProgressDone    = "done"
	ProgressSkipped = "skipped"
	ProgressFailed  = "failed"
)

// Progress is the checkpoint describing the state of a pipeline run.
type Progress struct {
	ProjectID        string            `json:"projectId"`
	RunID            string            `json:"runId,omitempty"`
	StartedAt        string            `json:"startedAt"`
	Steps            []string          `json:"steps"`
	CurrentStep      string            `json:"currentStep"`
	CurrentStepIndex int64             `json:"currentStepIndex"`
	TotalSteps       int64             `json:"totalSteps"`
	Status           string            `json:"status"`
	Detail           string            `json:"detail"`
	Percent          float64           `json:"percent"`
	UpdatedAt        string            `json:"updatedAt"`
	CompletedSteps   []string          `json:"completedSteps"`
	StepStatuses     map[string]string `json:"stepStatuses,omitempty"`
}
