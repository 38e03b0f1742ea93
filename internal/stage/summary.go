package stage

import (
	"splice/internal/artifact"
)

// Decision is one automated editing choice surfaced in run summaries.
type Decision struct {
	Stage      string  `json:"stage"`
	Type       string  `json:"type"`
	RefID      string  `json:"refId,omitempty"`
	StartUs    int64   `json:"startUs"`
	EndUs      int64   `json:"endUs"`
	Confidence float64 `json:"confidence,omitempty"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Summary is the per-stage section of a run summary.
type Summary struct {
	Metrics   map[string]int64 `json:"metrics"`
	Provider  string           `json:"provider,omitempty"`
	Decisions []Decision       `json:"-"`
}

// Summarize extracts counts and decisions from a validated artifact.
func Summarize(name string, v artifact.Validated) Summary {
	s := Summary{Metrics: map[string]int64{}}
	switch v.Kind {
	case artifact.KindTranscript:
		t := v.Transcript
		s.Provider = t.Provider
		s.Metrics["segments"] = int64(len(t.Segments))
		s.Metrics["words"] = int64(len(Words(t)))
	case artifact.KindCutPlan:
		p := v.CutPlan
		s.Provider = p.Provider
		s.Metrics["cuts"] = int64(len(p.RemoveRanges))
		var removed int64
		for _, r := range p.RemoveRanges {
			removed += r.EndUs - r.StartUs
		}
		s.Metrics["removedUs"] = removed
		rationale := make(map[int]string, len(p.Rationale))
		for _, r := range p.Rationale {
			rationale[r.RangeIndex] = r.Summary
		}
		for i, r := range p.RemoveRanges {
			why := rationale[i]
			if why == "" {
				why = r.Reason
			}
			s.Decisions = append(s.Decisions, Decision{
				Stage: name, Type: "cut", StartUs: r.StartUs, EndUs: r.EndUs,
				Confidence: r.Confidence, Rationale: why,
			})
		}
	case artifact.KindTemplatePlan:
		p := v.TemplatePlan
		s.Provider = p.Provider
		s.Metrics["templates"] = int64(len(p.Placements))
		for _, pl := range p.Placements {
			s.Decisions = append(s.Decisions, Decision{
				Stage: name, Type: "template", RefID: pl.ID, StartUs: pl.StartUs, EndUs: pl.EndUs,
				Confidence: pl.Confidence, Rationale: pl.Rationale,
			})
		}
	case artifact.KindAssetSuggestions:
		a := v.Assets
		s.Provider = a.Provider
		s.Metrics["suggestions"] = int64(len(a.Suggestions))
		var resolved int64
		for _, sg := range a.Suggestions {
			if sg.LocalPath != "" {
				resolved++
			}
		}
		s.Metrics["resolved"] = resolved
		if name == SuggestAssets {
			for _, sg := range a.Suggestions {
				s.Decisions = append(s.Decisions, Decision{
					Stage: name, Type: "asset", RefID: sg.ID, StartUs: sg.StartUs, EndUs: sg.EndUs,
					Confidence: sg.Confidence, Rationale: sg.Rationale,
				})
			}
		}
	case artifact.KindTimeline:
		tl := v.Timeline
		s.Metrics["clips"] = int64(len(tl.Clips))
		s.Metrics["overlays"] = int64(len(tl.Overlays))
		s.Metrics["durationUs"] = tl.DurationUs
	}
	return s
}

// Stamp records the provider that produced v when the payload did not name
// one itself.
func Stamp(v artifact.Validated, provider, model string) {
	switch v.Kind {
	case artifact.KindTranscript:
		if v.Transcript.Provider == "" {
			v.Transcript.Provider = provider
		}
	case artifact.KindCutPlan:
		if v.CutPlan.Provider == "" {
			v.CutPlan.Provider = provider
		}
		if v.CutPlan.Model == "" {
			v.CutPlan.Model = model
		}
	case artifact.KindTemplatePlan:
		if v.TemplatePlan.Provider == "" {
			v.TemplatePlan.Provider = provider
		}
		if v.TemplatePlan.Model == "" {
			v.TemplatePlan.Model = model
		}
	case artifact.KindAssetSuggestions:
		if v.Assets.Provider == "" {
			v.Assets.Provider = provider
		}
	}
}
