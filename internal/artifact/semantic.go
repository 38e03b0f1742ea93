package artifact

import (
	"slices"
	"sort"
)

// checkInterval enforces 0 <= start < end <= duration. Negative values were
// already rejected structurally.
func checkInterval(path string, start, end, duration int64, c *collector) {
	if end <= start {
		c.add(path, "end must exceed start (start=%d, end=%d)", start, end)
	}
	if start > duration {
		c.add(join(path, "startUs"), "start %d exceeds source duration %d", start, duration)
	}
	if end > duration {
		c.add(join(path, "endUs"), "end %d exceeds source duration %d", end, duration)
	}
}

func checkConfidence(path string, value float64, c *collector) {
	if value < 0 || value > 1 {
		c.add(path, "confidence %g must be within [0, 1]", value)
	}
}

func checkUnique(path, id string, seen map[string]int, i int, c *collector) {
	if id == "" {
		c.add(index(path, i), "id must not be empty")
		return
	}
	if prev, dup := seen[id]; dup {
		c.add(index(path, i), "duplicate id %q (also %s)", id, index(path, prev))
		return
	}
	seen[id] = i
}

func checkTranscript(t *Transcript, vctx Context, c *collector) {
	d := vctx.DurationUs
	seen := make(map[string]int, len(t.Words))
	for i, w := range t.Words {
		checkUnique("words", w.ID, seen, i, c)
		checkInterval(index("words", i), w.StartUs, w.EndUs, d, c)
		checkConfidence(join(index("words", i), "confidence"), w.Confidence, c)
	}

	// Embedded words join the universe only when no top-level list exists.
	universe := make(IDSet, len(t.Words))
	for _, w := range t.Words {
		universe.Add(w.ID)
	}
	standalone := len(t.Words) == 0
	if standalone {
		for _, s := range t.Segments {
			for _, w := range s.Words {
				universe.Add(w.ID)
			}
		}
	}

	segSeen := make(map[string]int, len(t.Segments))
	for i, s := range t.Segments {
		path := index("segments", i)
		checkUnique("segments", s.ID, segSeen, i, c)
		checkInterval(path, s.StartUs, s.EndUs, d, c)
		for j, id := range s.WordIDs {
			if !universe.Has(id) {
				c.add(index(join(path, "wordIds"), j), "references unknown word %q", id)
			}
		}
		for j, w := range s.Words {
			wpath := index(join(path, "words"), j)
			if !standalone && !universe.Has(w.ID) {
				c.add(join(wpath, "id"), "references unknown word %q", w.ID)
			}
			checkInterval(wpath, w.StartUs, w.EndUs, d, c)
		}
	}
}

func checkCutPlan(p *CutPlan, vctx Context, c *collector) {
	for i, r := range p.RemoveRanges {
		path := index("removeRanges", i)
		checkInterval(path, r.StartUs, r.EndUs, vctx.DurationUs, c)
		checkConfidence(join(path, "confidence"), r.Confidence, c)
		if vctx.WordIDs == nil {
			continue
		}
		for j, id := range r.WordIDs {
			if !vctx.WordIDs.Has(id) {
				c.add(index(join(path, "wordIds"), j), "references unknown transcript word %q", id)
			}
		}
	}
	for i, r := range p.Rationale {
		if r.RangeIndex >= len(p.RemoveRanges) {
			c.add(join(index("rationale", i), "rangeIndex"), "references missing remove range %d (have %d)", r.RangeIndex, len(p.RemoveRanges))
		}
	}
}

func checkTemplatePlan(p *TemplatePlan, vctx Context, c *collector) {
	seen := make(map[string]int, len(p.Placements))
	for i, pl := range p.Placements {
		path := index("placements", i)
		checkUnique("placements", pl.ID, seen, i, c)
		if pl.TemplateID == "" {
			c.add(join(path, "templateId"), "must not be empty")
		}
		checkInterval(path, pl.StartUs, pl.EndUs, vctx.DurationUs, c)
		checkConfidence(join(path, "confidence"), pl.Confidence, c)
	}

	order := make([]int, len(p.Placements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Placements[order[a]].StartUs < p.Placements[order[b]].StartUs
	})
	for k := 1; k < len(order); k++ {
		prev, cur := p.Placements[order[k-1]], p.Placements[order[k]]
		if cur.StartUs < prev.EndUs {
			c.add(index("placements", order[k]), "overlaps %s: starts at %d before previous end %d",
				index("placements", order[k-1]), cur.StartUs, prev.EndUs)
		}
	}
}

func checkAssetSuggestions(a *AssetSuggestions, vctx Context, c *collector) {
	seen := make(map[string]int, len(a.Suggestions))
	for i, s := range a.Suggestions {
		path := index("suggestions", i)
		checkUnique("suggestions", s.ID, seen, i, c)
		if s.Kind != AssetImage && s.Kind != AssetVideo {
			c.add(join(path, "kind"), "must be %q or %q, got %q", AssetImage, AssetVideo, s.Kind)
		}
		if s.Query == "" {
			c.add(join(path, "query"), "must not be empty")
		}
		checkInterval(path, s.StartUs, s.EndUs, vctx.DurationUs, c)
		checkConfidence(join(path, "confidence"), s.Confidence, c)
		if s.PlacementID != "" && vctx.PlacementIDs != nil && !vctx.PlacementIDs.Has(s.PlacementID) {
			c.add(join(path, "placementId"), "references unknown placement %q", s.PlacementID)
		}
	}
}

func checkTimeline(tl *Timeline, vctx Context, c *collector) {
	if tl.SourceDurationUs != vctx.DurationUs {
		c.add("sourceDurationUs", "source duration %d does not match project duration %d", tl.SourceDurationUs, vctx.DurationUs)
	}
	if tl.FPS < 1 {
		c.add("fps", "must be at least 1")
	}
	if tl.DurationUs > vctx.DurationUs {
		c.add("durationUs", "timeline duration %d exceeds source duration %d", tl.DurationUs, vctx.DurationUs)
	}

	tracks := make(IDSet, len(tl.Tracks))
	trackSeen := make(map[string]int, len(tl.Tracks))
	for i, tr := range tl.Tracks {
		checkUnique("tracks", tr.ID, trackSeen, i, c)
		tracks.Add(tr.ID)
	}

	clipSeen := make(map[string]int, len(tl.Clips))
	for i, cl := range tl.Clips {
		path := index("clips", i)
		checkUnique("clips", cl.ClipID, clipSeen, i, c)
		if !tracks.Has(cl.TrackID) {
			c.add(join(path, "trackId"), "references unknown track %q", cl.TrackID)
		}
		checkInterval(path, cl.StartUs, cl.EndUs, tl.DurationUs, c)
		if cl.SourceEndUs <= cl.SourceStartUs {
			c.add(path, "source end must exceed source start (sourceStartUs=%d, sourceEndUs=%d)", cl.SourceStartUs, cl.SourceEndUs)
		}
		if cl.SourceEndUs > vctx.DurationUs {
			c.add(join(path, "sourceEndUs"), "source end %d exceeds source duration %d", cl.SourceEndUs, vctx.DurationUs)
		}
		if cl.EndUs-cl.StartUs != cl.SourceEndUs-cl.SourceStartUs {
			c.add(path, "timeline span %d does not match source span %d", cl.EndUs-cl.StartUs, cl.SourceEndUs-cl.SourceStartUs)
		}
	}

	overlaySeen := make(map[string]int, len(tl.Overlays))
	for i, ov := range tl.Overlays {
		path := index("overlays", i)
		checkUnique("overlays", ov.OverlayID, overlaySeen, i, c)
		if !tracks.Has(ov.TrackID) {
			c.add(join(path, "trackId"), "references unknown track %q", ov.TrackID)
		}
		checkInterval(path, ov.StartUs, ov.EndUs, tl.DurationUs, c)
		switch ov.Kind {
		case OverlayTemplate:
			if vctx.PlacementIDs != nil && !vctx.PlacementIDs.Has(ov.RefID) {
				c.add(join(path, "refId"), "references unknown placement %q", ov.RefID)
			}
		case OverlayAsset:
			if vctx.AssetIDs != nil && !vctx.AssetIDs.Has(ov.RefID) {
				c.add(join(path, "refId"), "references unknown asset %q", ov.RefID)
			}
		case OverlayCaption:
		default:
			c.add(join(path, "kind"), "unknown overlay kind %q", ov.Kind)
		}
	}
}

var progressStatuses = []string{ProgressRunning, ProgressDone, ProgressSkipped, ProgressFailed}

func checkProgress(p *Progress, c *collector) {
	if p.ProjectID == "" {
		c.add("projectId", "must not be empty")
	}
	if !slices.Contains(progressStatuses, p.Status) {
		c.add("status", "unknown status %q", p.Status)
	}
	if p.CurrentStepIndex > p.TotalSteps {
		c.add("currentStepIndex", "index %d exceeds total steps %d", p.CurrentStepIndex, p.TotalSteps)
	}
	if p.Percent < 0 || p.Percent > 100 {
		c.add("percent", "percent %g must be within [0, 100]", p.Percent)
	}
	if len(p.Steps) == 0 {
		return
	}
	if int64(len(p.Steps)) != p.TotalSteps {
		c.add("totalSteps", "total %d does not match %d declared steps", p.TotalSteps, len(p.Steps))
	}
	for i, step := range p.CompletedSteps {
		if !slices.Contains(p.Steps, step) {
			c.add(index("completedSteps", i), "unknown step %q", step)
		}
	}
	for step, status := range p.StepStatuses {
		if !slices.Contains(p.Steps, step) {
			c.add(join("stepStatuses", step), "unknown step %q", step)
		}
		if !slices.Contains(stepStatuses, status) {
			c.add(join("stepStatuses", step), "unknown step status %q", status)
		}
	}
}

// Step statuses recorded in Progress.StepStatuses.
const (
	StepPending = "pending"
	StepRunning = "running"
	StepDone    = "done"
	StepSkipped = "skipped"
	StepFailed  = "failed"
)

var stepStatuses = []string{StepPending, StepRunning, StepDone, StepSkipped, StepFailed}
