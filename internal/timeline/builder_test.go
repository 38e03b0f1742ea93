package timeline

import (
	"encoding/json"
	"testing"
	"time"

	"splice/internal/artifact"
)

func TestNormalizeRanges(t *testing.T) {
	got := NormalizeRanges([]artifact.RemoveRange{
		{StartUs: 5_000, EndUs: 7_000},
		{StartUs: 1_000, EndUs: 2_000},
		{StartUs: 1_500, EndUs: 3_000},
		{StartUs: 3_000, EndUs: 3_500},
		{StartUs: 9_000, EndUs: 20_000},
		{StartUs: 4_000, EndUs: 4_000},
	}, 10_000)
	want := []Range{{1_000, 3_500}, {5_000, 7_000}, {9_000, 10_000}}
	if len(got) != len(want) {
		t.Fatalf("NormalizeRanges = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeRanges[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInvertRanges(t *testing.T) {
	tests := []struct {
		name    string
		removed []Range
		dur     int64
		want    []Range
	}{
		{"none", nil, 1_000, []Range{{0, 1_000}}},
		{"middle", []Range{{200, 400}}, 1_000, []Range{{0, 200}, {400, 1_000}}},
		{"edges", []Range{{0, 100}, {900, 1_000}}, 1_000, []Range{{100, 900}}},
		{"all", []Range{{0, 1_000}}, 1_000, []Range{}},
		{"zero duration", nil, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InvertRanges(tt.removed, tt.dur)
			if len(got) != len(tt.want) {
				t.Fatalf("InvertRanges = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("InvertRanges[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildRoughCut(t *testing.T) {
	const duration = 10_000_000
	in := Input{
		ProjectID:  "proj-1",
		DurationUs: duration,
		FPS:        0,
		CutPlan: &artifact.CutPlan{RemoveRanges: []artifact.RemoveRange{
			{StartUs: 2_000_000, EndUs: 3_000_000, Reason: "filler"},
			{StartUs: 6_000_000, EndUs: 7_000_000, Reason: "pause"},
		}},
		Templates: &artifact.TemplatePlan{Placements: []artifact.Placement{
			{ID: "tpl-1", TemplateID: "lower-third", StartUs: 500_000, EndUs: 1_500_000, Content: json.RawMessage(`{"text":"Hello"}`)},
			{ID: "tpl-2", TemplateID: "title", StartUs: 2_100_000, EndUs: 2_900_000},
			{ID: "tpl-3", TemplateID: "callout", StartUs: 5_500_000, EndUs: 7_500_000},
		}},
		Assets: &artifact.AssetSuggestions{Suggestions: []artifact.Suggestion{
			{ID: "asset-1", Kind: "image", Query: "city skyline", StartUs: 8_000_000, EndUs: 9_000_000, LocalPath: "/p/assets/asset-1.jpg"},
			{ID: "asset-2", Kind: "video", Query: "ocean", StartUs: 1_000_000, EndUs: 2_000_000},
		}},
		Now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	tl := Build(in)
	if tl.ID != "timeline-proj-1" || tl.Status != StatusRoughCutReady || tl.FPS != 30 {
		t.Fatalf("unexpected header %+v", tl)
	}
	if tl.DurationUs != 8_000_000 {
		t.Fatalf("DurationUs = %d, want 8000000", tl.DurationUs)
	}
	if len(tl.Clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(tl.Clips))
	}
	second := tl.Clips[1]
	if second.ClipID != "clip-2" || second.StartUs != 2_000_000 || second.SourceStartUs != 3_000_000 || second.SourceEndUs != 6_000_000 {
		t.Fatalf("unexpected second clip %+v", second)
	}
	if second.Meta["generatedBy"] != GeneratedBy {
		t.Fatalf("missing clip metadata %+v", second.Meta)
	}

	byRef := map[string]artifact.Overlay{}
	for _, ov := range tl.Overlays {
		byRef[ov.RefID] = ov
	}
	if _, ok := byRef["tpl-2"]; ok {
		t.Fatal("placement inside removed material should be dropped")
	}
	if _, ok := byRef["asset-2"]; ok {
		t.Fatal("unresolved asset should not become an overlay")
	}
	if ov := byRef["tpl-1"]; ov.Text != "Hello" || ov.StartUs != 500_000 || ov.EndUs != 1_500_000 {
		t.Fatalf("unexpected tpl-1 overlay %+v", ov)
	}
	// 5.5s..7.5s spans the 6s..7s cut: maps to 4.5s..5.5s on the cut timeline.
	if ov := byRef["tpl-3"]; ov.StartUs != 4_500_000 || ov.EndUs != 5_500_000 {
		t.Fatalf("unexpected tpl-3 overlay %+v", ov)
	}
	if ov := byRef["asset-1"]; ov.TrackID != TrackBroll || ov.StartUs != 6_000_000 || ov.EndUs != 7_000_000 {
		t.Fatalf("unexpected asset overlay %+v", ov)
	}

	payload, err := json.Marshal(tl)
	if err != nil {
		t.Fatal(err)
	}
	vctx := artifact.Context{
		DurationUs:   duration,
		PlacementIDs: in.Templates.PlacementIDs(),
		AssetIDs:     in.Assets.IDs(),
	}
	if _, err := artifact.Validate(artifact.KindTimeline, payload, vctx); err != nil {
		t.Fatalf("assembled timeline failed validation: %v", err)
	}
}

func TestBuildCaptionsFromTranscript(t *testing.T) {
	transcript := &artifact.Transcript{Segments: []artifact.Segment{
		{ID: "seg-1", StartUs: 0, EndUs: 1_000_000, Text: "hello there"},
		{ID: "seg-2", StartUs: 1_000_000, EndUs: 2_000_000, Text: "um"},
	}}
	cut := &artifact.CutPlan{RemoveRanges: []artifact.RemoveRange{{StartUs: 1_000_000, EndUs: 2_000_000}}}

	tl := Build(Input{ProjectID: "p", DurationUs: 3_000_000, CutPlan: cut, Transcript: transcript})
	if len(tl.Overlays) != 1 || tl.Overlays[0].Kind != artifact.OverlayCaption || tl.Overlays[0].RefID != "seg-1" {
		t.Fatalf("unexpected overlays %+v", tl.Overlays)
	}

	withCaptions := &artifact.TemplatePlan{Placements: []artifact.Placement{
		{ID: "cap-1", TemplateID: "caption", Category: "caption", StartUs: 0, EndUs: 1_000_000},
	}}
	tl = Build(Input{ProjectID: "p", DurationUs: 3_000_000, CutPlan: cut, Transcript: transcript, Templates: withCaptions})
	if len(tl.Overlays) != 1 || tl.Overlays[0].Kind != artifact.OverlayTemplate || tl.Overlays[0].TrackID != TrackCaptions {
		t.Fatalf("caption placements should replace transcript captions, got %+v", tl.Overlays)
	}
}

func TestBuildCaptionsResolveWordIDs(t *testing.T) {
	transcript := &artifact.Transcript{
		Words: []artifact.Word{
			{ID: "w1", Text: "cut", StartUs: 0, EndUs: 400_000},
			{ID: "w2", Text: "here", StartUs: 400_000, EndUs: 900_000},
		},
		Segments: []artifact.Segment{{ID: "seg-1", StartUs: 0, EndUs: 1_000_000, WordIDs: []string{"w1", "w2"}}},
	}

	tl := Build(Input{ProjectID: "p", DurationUs: 2_000_000, CutPlan: &artifact.CutPlan{}, Transcript: transcript})
	if len(tl.Overlays) != 1 || tl.Overlays[0].Text != "cut here" {
		t.Fatalf("expected caption text from referenced words, got %+v", tl.Overlays)
	}
}

func TestBuildEverythingRemoved(t *testing.T) {
	cut := &artifact.CutPlan{RemoveRanges: []artifact.RemoveRange{{StartUs: 0, EndUs: 5_000}}}
	tl := Build(Input{ProjectID: "p", DurationUs: 5_000, CutPlan: cut})
	if len(tl.Clips) != 0 || tl.DurationUs != 0 {
		t.Fatalf("expected empty timeline, got %+v", tl)
	}
}
