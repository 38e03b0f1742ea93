package artifact

import "fmt"

// Kind names an artifact type.
type Kind string

const (
	KindTranscript       Kind = "transcript"
	KindCutPlan          Kind = "cut-plan"
	KindTemplatePlan     Kind = "template-plan"
	KindAssetSuggestions Kind = "asset-suggestions"
	KindTimeline         Kind = "timeline"
	KindProgress         Kind = "progress"
)

// Kinds lists every artifact kind in pipeline order, progress last.
var Kinds = []Kind{
	KindTranscript,
	KindCutPlan,
	KindTemplatePlan,
	KindAssetSuggestions,
	KindTimeline,
	KindProgress,
}

// FileName returns the on-disk file name for the artifact kind.
func (k Kind) FileName() string {
	return string(k) + ".json"
}

// ParseKind maps a user supplied name onto a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name || k.FileName() == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown artifact kind %q", name)
}

// timed reports whether validation of the kind depends on the source duration.
func (k Kind) timed() bool {
	switch k {
	case KindTranscript, KindCutPlan, KindTemplatePlan, KindAssetSuggestions, KindTimeline:
		return true
	default:
		return false
	}
}
