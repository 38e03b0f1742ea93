package stage

import (
	"encoding/json"
	"fmt"
	"strings"

	"splice/internal/artifact"
	"splice/internal/stageexec"
)

// CutPlanPrompt is the system prompt for the plan-cuts stage.
const CutPlanPrompt = `You are an assistant that plans a rough cut of a spoken-word video from its transcript.

Remove material that weakens the edit:
- Filler words and false starts ("um", "uh", repeated words)
- Long pauses and dead air between sentences
- Off-topic tangents and retakes where the speaker restarts a sentence

Keep:
- Every complete sentence that carries meaning
- Natural breathing room (do not cut gaps shorter than a quarter second)

All times are integer microseconds on the source timeline. Every range must satisfy 0 <= startUs < endUs <= durationUs.
Reference removed words by their ids in wordIds when the range covers transcript words.

You must respond ONLY with JSON: {"removeRanges": [{"startUs": int, "endUs": int, "reason": "filler|pause|retake|tangent", "confidence": 0.0-1.0, "wordIds": ["w1"]}], "rationale": [{"rangeIndex": int, "summary": "brief explanation"}]}`

// TemplatePlanPrompt is the system prompt for the plan-templates stage.
const TemplatePlanPrompt = `You are an assistant that places on-screen templates over a spoken-word video.

Available template categories:
- caption: lower-third text summarizing what is being said
- title: a full-screen title card introducing a new topic
- callout: a short highlighted phrase emphasizing a key point

Rules:
- All times are integer microseconds on the source timeline with 0 <= startUs < endUs <= durationUs
- Placements must not overlap one another
- Prefer fewer, well-timed placements over many short ones
- Put the display text in content.text

You must respond ONLY with JSON: {"placements": [{"id": "tpl-1", "templateId": "string", "category": "caption|title|callout", "startUs": int, "endUs": int, "confidence": 0.0-1.0, "content": {"text": "string"}, "rationale": "brief explanation"}]}`

// AssetSuggestionPrompt is the system prompt for the suggest-assets stage.
const AssetSuggestionPrompt = `You are an assistant that suggests stock media (b-roll) for a spoken-word video.

For moments where a visual would help the viewer, propose a short search query for a stock image or video clip.

Rules:
- kind is "image" or "video"
- query is a short, concrete search phrase (2 to 5 words)
- All times are integer microseconds on the source timeline with 0 <= startUs < endUs <= durationUs
- When a suggestion illustrates a template placement, set placementId to that placement's id
- Set provider to "llm"

You must respond ONLY with JSON: {"suggestions": [{"id": "asset-1", "provider": "llm", "kind": "image|video", "query": "string", "startUs": int, "endUs": int, "placementId": "optional", "confidence": 0.0-1.0, "rationale": "brief explanation"}]}`

type promptWord struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	StartUs int64  `json:"startUs"`
	EndUs   int64  `json:"endUs"`
}

type promptSegment struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	StartUs int64  `json:"startUs"`
	EndUs   int64  `json:"endUs"`
}

func cutPrompt(req Request) (stageexec.Prompt, error) {
	if req.Transcript == nil {
		return stageexec.Prompt{}, fmt.Errorf("plan-cuts prompt: transcript unavailable")
	}
	words := make([]promptWord, 0, len(req.Transcript.Words))
	for _, w := range Words(req.Transcript) {
		words = append(words, promptWord{ID: w.ID, Text: w.Text, StartUs: w.StartUs, EndUs: w.EndUs})
	}
	var b strings.Builder
	writeHeader(&b, req)
	if err := writeJSONBlock(&b, "Words", words); err != nil {
		return stageexec.Prompt{}, err
	}
	return stageexec.Prompt{System: CutPlanPrompt, User: b.String()}, nil
}

func templatePrompt(req Request) (stageexec.Prompt, error) {
	if req.Transcript == nil {
		return stageexec.Prompt{}, fmt.Errorf("plan-templates prompt: transcript unavailable")
	}
	var b strings.Builder
	writeHeader(&b, req)
	if err := writeJSONBlock(&b, "Segments", segments(req.Transcript)); err != nil {
		return stageexec.Prompt{}, err
	}
	return stageexec.Prompt{System: TemplatePlanPrompt, User: b.String()}, nil
}

func assetPrompt(req Request) (stageexec.Prompt, error) {
	if req.Transcript == nil || req.Templates == nil {
		return stageexec.Prompt{}, fmt.Errorf("suggest-assets prompt: transcript or template plan unavailable")
	}
	var b strings.Builder
	writeHeader(&b, req)
	if err := writeJSONBlock(&b, "Segments", segments(req.Transcript)); err != nil {
		return stageexec.Prompt{}, err
	}
	if err := writeJSONBlock(&b, "Template placements", req.Templates.Placements); err != nil {
		return stageexec.Prompt{}, err
	}
	return stageexec.Prompt{System: AssetSuggestionPrompt, User: b.String()}, nil
}

func writeHeader(b *strings.Builder, req Request) {
	fmt.Fprintf(b, "Project: %s\n", req.ProjectID)
	fmt.Fprintf(b, "durationUs: %d\n", req.DurationUs)
	if req.Language != "" {
		fmt.Fprintf(b, "Language: %s\n", req.Language)
	}
}

func writeJSONBlock(b *strings.Builder, title string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", strings.ToLower(title), err)
	}
	fmt.Fprintf(b, "\n%s:\n%s\n", title, data)
	return nil
}

func segments(t *artifact.Transcript) []promptSegment {
	out := make([]promptSegment, 0, len(t.Segments))
	for _, s := range t.Segments {
		out = append(out, promptSegment{ID: s.ID, Text: t.SegmentText(s), StartUs: s.StartUs, EndUs: s.EndUs})
	}
	return out
}

// Words returns the transcript's word list: top-level words when present,
// otherwise the words embedded in segments.
func Words(t *artifact.Transcript) []artifact.Word {
	if t == nil {
		return nil
	}
	if len(t.Words) > 0 {
		return t.Words
	}
	var words []artifact.Word
	for _, s := range t.Segments {
		words = append(words, s.Words...)
	}
	return words
}

