package timeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"splice/internal/artifact"
)

// Track identifiers.
const (
	TrackVideo    = "track-video-main"
	TrackCaptions = "track-captions"
	TrackBroll    = "track-broll"
	TrackOverlays = "track-overlays"
)

const (
	// StatusRoughCutReady marks a freshly assembled timeline.
	StatusRoughCutReady = "ROUGH_CUT_READY"
	// GeneratedBy is recorded in clip metadata.
	GeneratedBy     = "ai-rough-cut"
	clipTypeSource  = "source_clip"
	defaultFPS      = 30
	captionCategory = "caption"
)

// Input collects what the builder needs. Only the cut plan is required;
// the other artifacts add overlays when present.
type Input struct {
	ProjectID  string
	SourceRef  string
	DurationUs int64
	FPS        int64
	CutPlan    *artifact.CutPlan
	Transcript *artifact.Transcript
	Templates  *artifact.TemplatePlan
	Assets     *artifact.AssetSuggestions
	Now        time.Time
}

// Build assembles the rough-cut timeline.
func Build(in Input) *artifact.Timeline {
	var removeInput []artifact.RemoveRange
	if in.CutPlan != nil {
		removeInput = in.CutPlan.RemoveRanges
	}
	removed := NormalizeRanges(removeInput, in.DurationUs)
	keep := InvertRanges(removed, in.DurationUs)
	m := newMapper(keep)

	sourceRef := strings.TrimSpace(in.SourceRef)
	if sourceRef == "" {
		sourceRef = "source-video"
	}
	fps := in.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	stamp := now.UTC().Format(time.RFC3339Nano)

	tl := &artifact.Timeline{
		ID:               "timeline-" + in.ProjectID,
		ProjectID:        in.ProjectID,
		Version:          1,
		Status:           StatusRoughCutReady,
		FPS:              max(fps, 1),
		SourceDurationUs: in.DurationUs,
		CreatedAt:        stamp,
		UpdatedAt:        stamp,
		Tracks: []artifact.Track{
			{ID: TrackVideo, Name: "Main Video", Kind: "video", Order: 0},
			{ID: TrackCaptions, Name: "Captions", Kind: "caption", Order: 1},
			{ID: TrackBroll, Name: "B-Roll", Kind: "video", Order: 2},
			{ID: TrackOverlays, Name: "Overlays", Kind: "overlay", Order: 3},
		},
		Clips:    make([]artifact.Clip, 0, len(keep)),
		Overlays: []artifact.Overlay{},
	}

	for i, seg := range m {
		span := seg.source.EndUs - seg.source.StartUs
		tl.Clips = append(tl.Clips, artifact.Clip{
			ClipID:        fmt.Sprintf("clip-%d", i+1),
			TrackID:       TrackVideo,
			ClipType:      clipTypeSource,
			StartUs:       seg.startUs,
			EndUs:         seg.startUs + span,
			SourceStartUs: seg.source.StartUs,
			SourceEndUs:   seg.source.EndUs,
			SourceRef:     sourceRef,
			Meta: map[string]any{
				"generatedBy":         GeneratedBy,
				"removeRangesApplied": removed,
			},
		})
		tl.DurationUs = seg.startUs + span
	}

	captionPlacements := false
	if in.Templates != nil {
		for _, p := range in.Templates.Placements {
			mapped, ok := m.Map(p.StartUs, p.EndUs)
			if !ok {
				continue
			}
			track := TrackOverlays
			if strings.EqualFold(p.Category, captionCategory) {
				track = TrackCaptions
				captionPlacements = true
			}
			tl.Overlays = append(tl.Overlays, artifact.Overlay{
				OverlayID: fmt.Sprintf("overlay-%d", len(tl.Overlays)+1),
				TrackID:   track,
				Kind:      artifact.OverlayTemplate,
				RefID:     p.ID,
				StartUs:   mapped.StartUs,
				EndUs:     mapped.EndUs,
				Text:      contentText(p.Content),
			})
		}
	}

	if in.Assets != nil {
		for _, s := range in.Assets.Suggestions {
			if s.LocalPath == "" {
				continue
			}
			mapped, ok := m.Map(s.StartUs, s.EndUs)
			if !ok {
				continue
			}
			tl.Overlays = append(tl.Overlays, artifact.Overlay{
				OverlayID: fmt.Sprintf("overlay-%d", len(tl.Overlays)+1),
				TrackID:   TrackBroll,
				Kind:      artifact.OverlayAsset,
				RefID:     s.ID,
				StartUs:   mapped.StartUs,
				EndUs:     mapped.EndUs,
				Text:      s.Query,
				LocalPath: s.LocalPath,
			})
		}
	}

	// Transcript captions only fill in when no caption template was planned.
	if in.Transcript != nil && !captionPlacements {
		for _, seg := range in.Transcript.Segments {
			text := in.Transcript.SegmentText(seg)
			if text == "" {
				continue
			}
			mapped, ok := m.Map(seg.StartUs, seg.EndUs)
			if !ok {
				continue
			}
			tl.Overlays = append(tl.Overlays, artifact.Overlay{
				OverlayID: fmt.Sprintf("overlay-%d", len(tl.Overlays)+1),
				TrackID:   TrackCaptions,
				Kind:      artifact.OverlayCaption,
				RefID:     seg.ID,
				StartUs:   mapped.StartUs,
				EndUs:     mapped.EndUs,
				Text:      text,
			})
		}
	}
	return tl
}

// contentText pulls a display string from a placement payload.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var content struct {
		Text  string `json:"text"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &content); err != nil {
		return ""
	}
	if content.Text != "" {
		return content.Text
	}
	return content.Title
}
