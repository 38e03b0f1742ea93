package stage

import (
	"fmt"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"splice/internal/artifact"
	"splice/internal/config"
	"splice/internal/stageexec"
)

// Stage names in pipeline order.
const (
	Transcribe       = "transcribe"
	PlanCuts         = "plan-cuts"
	PlanTemplates    = "plan-templates"
	SuggestAssets    = "suggest-assets"
	ResolveAssets    = "resolve-assets"
	AssembleTimeline = "assemble-timeline"
)

// Inputs holds the validated artifacts available to a stage. Fields for
// stages that have not run yet are nil.
type Inputs struct {
	Transcript *artifact.Transcript
	CutPlan    *artifact.CutPlan
	Templates  *artifact.TemplatePlan
	Assets     *artifact.AssetSuggestions
}

// Set records a validated artifact as available to later stages.
func (in *Inputs) Set(v artifact.Validated) {
	switch v.Kind {
	case artifact.KindTranscript:
		in.Transcript = v.Transcript
	case artifact.KindCutPlan:
		in.CutPlan = v.CutPlan
	case artifact.KindTemplatePlan:
		in.Templates = v.TemplatePlan
	case artifact.KindAssetSuggestions:
		in.Assets = v.Assets
	}
}

// has reports whether an artifact of kind is available.
func (in Inputs) has(kind artifact.Kind) bool {
	switch kind {
	case artifact.KindTranscript:
		return in.Transcript != nil
	case artifact.KindCutPlan:
		return in.CutPlan != nil
	case artifact.KindTemplatePlan:
		return in.Templates != nil
	case artifact.KindAssetSuggestions:
		return in.Assets != nil
	default:
		return false
	}
}

// Source describes the project media a stage works on.
type Source struct {
	ProjectID   string
	ProjectRoot string
	Input       string
	SourceRef   string
	DurationUs  int64
	FPS         int64
	Language    string
	AssetsDir   string
}

// Request is the structured request handed to providers. Command providers
// receive it as JSON; builtins receive the value.
type Request struct {
	Stage      string                     `json:"stage"`
	ProjectID  string                     `json:"projectId"`
	Input      string                     `json:"input"`
	SourceRef  string                     `json:"sourceRef"`
	DurationUs int64                      `json:"durationUs"`
	FPS        int64                      `json:"fps"`
	Language   string                     `json:"language,omitempty"`
	Model      string                     `json:"model,omitempty"`
	SampleRate int                        `json:"sampleRate,omitempty"`
	AssetsDir  string                     `json:"assetsDir,omitempty"`
	Transcript *artifact.Transcript       `json:"transcript,omitempty"`
	CutPlan    *artifact.CutPlan          `json:"cutPlan,omitempty"`
	Templates  *artifact.TemplatePlan     `json:"templatePlan,omitempty"`
	Assets     *artifact.AssetSuggestions `json:"assetSuggestions,omitempty"`
}

// Definition describes one pipeline stage.
type Definition struct {
	Name string
	Kind artifact.Kind
	// Requires lists upstream artifacts that must be available.
	Requires []artifact.Kind
	// DefaultBuiltin is used when the stage has no configured providers.
	DefaultBuiltin string
	// prompt builds the language-model prompt; nil means the stage cannot be
	// served by llm providers.
	prompt func(Request) (stageexec.Prompt, error)
	// real reports whether a validated artifact is genuine output rather
	// than a synthetic stand-in.
	real func(artifact.Validated) bool
}

var catalogue = []Definition{
	{
		Name:           Transcribe,
		Kind:           artifact.KindTranscript,
		DefaultBuiltin: BuiltinTranscriptImport,
	},
	{
		Name:           PlanCuts,
		Kind:           artifact.KindCutPlan,
		Requires:       []artifact.Kind{artifact.KindTranscript},
		DefaultBuiltin: BuiltinCutsHeuristic,
		prompt:         cutPrompt,
	},
	{
		Name:           PlanTemplates,
		Kind:           artifact.KindTemplatePlan,
		Requires:       []artifact.Kind{artifact.KindTranscript},
		DefaultBuiltin: BuiltinTemplatesCaptions,
		prompt:         templatePrompt,
	},
	{
		Name:           SuggestAssets,
		Kind:           artifact.KindAssetSuggestions,
		Requires:       []artifact.Kind{artifact.KindTranscript, artifact.KindTemplatePlan},
		DefaultBuiltin: BuiltinAssetsNone,
		prompt:         assetPrompt,
	},
	{
		Name:           ResolveAssets,
		Kind:           artifact.KindAssetSuggestions,
		Requires:       []artifact.Kind{artifact.KindTemplatePlan, artifact.KindAssetSuggestions},
		DefaultBuiltin: BuiltinAssetsLibrary,
		real: func(v artifact.Validated) bool {
			return !v.Placeholder() && v.Assets.Resolved()
		},
	},
	{
		Name:           AssembleTimeline,
		Kind:           artifact.KindTimeline,
		Requires:       []artifact.Kind{artifact.KindCutPlan, artifact.KindTemplatePlan, artifact.KindAssetSuggestions},
		DefaultBuiltin: BuiltinTimelineAssemble,
	},
}

// Catalogue returns every stage definition in pipeline order.
func Catalogue() []Definition {
	return slices.Clone(catalogue)
}

// Names returns the stage names in pipeline order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for _, def := range catalogue {
		names = append(names, def.Name)
	}
	return names
}

// Lookup returns the definition for a stage name.
func Lookup(name string) (Definition, bool) {
	for _, def := range catalogue {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

var titleCaser = cases.Title(language.English)

// Label renders a stage name for display, e.g. "Plan Cuts".
func Label(name string) string {
	words := []rune(name)
	for i, r := range words {
		if r == '-' || r == '_' {
			words[i] = ' '
		}
	}
	return titleCaser.String(string(words))
}

// Ready reports a missing upstream artifact, if any.
func (d Definition) Ready(in Inputs) error {
	for _, kind := range d.Requires {
		if !in.has(kind) {
			return fmt.Errorf("stage %s requires %s", d.Name, kind)
		}
	}
	return nil
}

// Real reports whether v is genuine output for this stage.
func (d Definition) Real(v artifact.Validated) bool {
	if d.real != nil {
		return d.real(v)
	}
	return !v.Placeholder()
}

// Context returns the validation context for this stage's artifact.
func (d Definition) Context(src Source, in Inputs) artifact.Context {
	vctx := artifact.Context{DurationUs: src.DurationUs}
	switch d.Kind {
	case artifact.KindCutPlan:
		if in.Transcript != nil {
			vctx.WordIDs = in.Transcript.WordIDs()
		}
	case artifact.KindAssetSuggestions:
		if in.Templates != nil {
			vctx.PlacementIDs = in.Templates.PlacementIDs()
		}
	case artifact.KindTimeline:
		if in.Templates != nil {
			vctx.PlacementIDs = in.Templates.PlacementIDs()
		}
		if in.Assets != nil {
			vctx.AssetIDs = in.Assets.IDs()
		}
	}
	return vctx
}

// Request builds the provider request for this stage.
func (d Definition) Request(src Source, in Inputs, settings config.Stage) Request {
	req := Request{
		Stage:      d.Name,
		ProjectID:  src.ProjectID,
		Input:      src.Input,
		SourceRef:  src.SourceRef,
		DurationUs: src.DurationUs,
		FPS:        src.FPS,
		Language:   firstNonEmpty(settings.Language, src.Language),
		Model:      settings.Model,
		SampleRate: settings.SampleRate,
		AssetsDir:  src.AssetsDir,
	}
	for _, kind := range d.Requires {
		switch kind {
		case artifact.KindTranscript:
			req.Transcript = in.Transcript
		case artifact.KindCutPlan:
			req.CutPlan = in.CutPlan
		case artifact.KindTemplatePlan:
			req.Templates = in.Templates
		case artifact.KindAssetSuggestions:
			req.Assets = in.Assets
		}
	}
	if d.Name == AssembleTimeline {
		// Transcript captions fill the caption track when no caption
		// template was planned.
		req.Transcript = in.Transcript
	}
	return req
}

// Prompt builds the language-model prompt. Stages without a prompt return
// an empty Prompt, which llm providers reject.
func (d Definition) Prompt(req Request) (stageexec.Prompt, error) {
	if d.prompt == nil {
		return stageexec.Prompt{}, nil
	}
	return d.prompt(req)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
