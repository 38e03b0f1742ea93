package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"splice/internal/artifact"
	"splice/internal/config"
	"splice/internal/stageexec"
	"splice/internal/timeline"
)

// Builtin provider identifiers.
const (
	BuiltinTranscriptImport  = "transcript.import"
	BuiltinCutsHeuristic     = "cuts.heuristic"
	BuiltinTemplatesCaptions = "templates.captions"
	BuiltinAssetsNone        = "assets.none"
	BuiltinAssetsLibrary     = "assets.library"
	BuiltinTimelineAssemble  = "timeline.assemble"
)

// sidecarSuffix is appended to the media path (or its stem) when looking for
// an existing transcript.
const sidecarSuffix = ".transcript.json"

// Builtins returns the registry of in-process providers.
func Builtins(cfg *config.Config) map[string]stageexec.Builtin {
	library := NewLibrary(cfg.Assets.LibraryDir, cfg.Assets.Extensions)
	return map[string]stageexec.Builtin{
		BuiltinTranscriptImport:  importTranscript,
		BuiltinCutsHeuristic:     planCutsHeuristic,
		BuiltinTemplatesCaptions: placeCaptions,
		BuiltinAssetsNone:        noAssets,
		BuiltinAssetsLibrary:     library.Resolve,
		BuiltinTimelineAssemble:  assembleTimeline,
	}
}

// BuiltinProvider returns the provider definition used when a stage has no
// configured chain.
func BuiltinProvider(builtin string) config.Provider {
	return config.Provider{Name: builtin, Kind: config.ProviderBuiltin, Builtin: builtin}
}

func requestFrom(inv stageexec.Invocation) (*Request, error) {
	switch req := inv.Request.(type) {
	case *Request:
		return req, nil
	case Request:
		return &req, nil
	default:
		return nil, &stageexec.Failure{Kind: stageexec.KindIOError, Message: fmt.Sprintf("builtin %s: unexpected request type %T", inv.Provider.Builtin, inv.Request)}
	}
}

func missingInput(what string) error {
	return &stageexec.Failure{Kind: stageexec.KindIOError, Message: what + " unavailable"}
}

// SidecarCandidates lists the paths checked for an existing transcript.
func SidecarCandidates(input, projectRoot string) []string {
	var out []string
	if input != "" {
		out = append(out, input+sidecarSuffix)
		if ext := filepath.Ext(input); ext != "" {
			out = append(out, strings.TrimSuffix(input, ext)+sidecarSuffix)
		}
	}
	if projectRoot != "" {
		out = append(out, filepath.Join(projectRoot, "transcript.source.json"))
	}
	return out
}

func importTranscript(_ context.Context, inv stageexec.Invocation) (any, error) {
	req, err := requestFrom(inv)
	if err != nil {
		return nil, err
	}
	for _, path := range SidecarCandidates(req.Input, inv.ProjectRoot) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &stageexec.Failure{Kind: stageexec.KindIOError, Message: fmt.Sprintf("read %s: %v", path, err)}
		}
		if !json.Valid(data) {
			return nil, &stageexec.Failure{Kind: stageexec.KindUnparseable, Connected: true, Message: fmt.Sprintf("%s is not valid JSON", path)}
		}
		return json.RawMessage(data), nil
	}
	return nil, &stageexec.Failure{Kind: stageexec.KindIOError, Message: fmt.Sprintf("no sidecar transcript found for %s", req.Input)}
}

func planCutsHeuristic(_ context.Context, inv stageexec.Invocation) (any, error) {
	req, err := requestFrom(inv)
	if err != nil {
		return nil, err
	}
	if req.Transcript == nil {
		return nil, missingInput("transcript")
	}
	plan := HeuristicCuts(req.Transcript, req.DurationUs, DefaultHeuristics())
	plan.Provider = inv.Provider.Name
	return plan, nil
}

// captionTemplate is the template id used for transcript captions.
const captionTemplate = "caption.lower-third"

// CaptionPlacements places one caption per transcript segment, trimming
// starts so no two placements overlap.
func CaptionPlacements(t *artifact.Transcript, durationUs int64) []artifact.Placement {
	placements := []artifact.Placement{}
	var lastEnd int64
	for _, seg := range t.Segments {
		text := t.SegmentText(seg)
		if text == "" {
			continue
		}
		start := max(seg.StartUs, lastEnd, 0)
		end := min(seg.EndUs, durationUs)
		if end <= start {
			continue
		}
		content, _ := json.Marshal(map[string]string{"text": text})
		placements = append(placements, artifact.Placement{
			ID:         fmt.Sprintf("caption-%d", len(placements)+1),
			TemplateID: captionTemplate,
			Category:   "caption",
			StartUs:    start,
			EndUs:      end,
			Confidence: 1,
			Content:    content,
		})
		lastEnd = end
	}
	return placements
}

func placeCaptions(_ context.Context, inv stageexec.Invocation) (any, error) {
	req, err := requestFrom(inv)
	if err != nil {
		return nil, err
	}
	if req.Transcript == nil {
		return nil, missingInput("transcript")
	}
	return &artifact.TemplatePlan{
		Placements: CaptionPlacements(req.Transcript, req.DurationUs),
		Provider:   inv.Provider.Name,
	}, nil
}

func noAssets(_ context.Context, inv stageexec.Invocation) (any, error) {
	return &artifact.AssetSuggestions{
		Suggestions: []artifact.Suggestion{},
		Provider:    inv.Provider.Name,
		Placeholder: true,
	}, nil
}

func assembleTimeline(_ context.Context, inv stageexec.Invocation) (any, error) {
	req, err := requestFrom(inv)
	if err != nil {
		return nil, err
	}
	if req.CutPlan == nil {
		return nil, missingInput("cut plan")
	}
	return timeline.Build(timeline.Input{
		ProjectID:  req.ProjectID,
		SourceRef:  req.SourceRef,
		DurationUs: req.DurationUs,
		FPS:        req.FPS,
		CutPlan:    req.CutPlan,
		Transcript: req.Transcript,
		Templates:  req.Templates,
		Assets:     req.Assets,
		Now:        time.Now(),
	}), nil
}
