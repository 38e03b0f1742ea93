package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Context carries the cross-artifact facts semantic validation needs.
type Context struct {
	// DurationUs is the source media duration. Every timed kind requires it.
	DurationUs int64
	// WordIDs, PlacementIDs, and AssetIDs are the id universes references are
	// checked against. A nil set skips the corresponding check.
	WordIDs      IDSet
	PlacementIDs IDSet
	AssetIDs     IDSet
}

// Validated is a payload that passed both validation layers. Exactly one of
// the typed fields is set, matching Kind.
type Validated struct {
	Kind         Kind
	Transcript   *Transcript
	CutPlan      *CutPlan
	TemplatePlan *TemplatePlan
	Assets       *AssetSuggestions
	Timeline     *Timeline
	Progress     *Progress
}

// Value returns the typed artifact.
func (v Validated) Value() any {
	switch v.Kind {
	case KindTranscript:
		return v.Transcript
	case KindCutPlan:
		return v.CutPlan
	case KindTemplatePlan:
		return v.TemplatePlan
	case KindAssetSuggestions:
		return v.Assets
	case KindTimeline:
		return v.Timeline
	case KindProgress:
		return v.Progress
	default:
		return nil
	}
}

// Encode returns the canonical JSON form of the validated artifact.
func (v Validated) Encode() ([]byte, error) {
	value := v.Value()
	if value == nil {
		return nil, fmt.Errorf("encode %s: no validated value", v.Kind)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", v.Kind, err)
	}
	return append(data, '\n'), nil
}

// Placeholder reports whether the artifact was produced by a synthetic
// stand-in rather than a real provider.
func (v Validated) Placeholder() bool {
	switch v.Kind {
	case KindTranscript:
		return v.Transcript.Placeholder
	case KindCutPlan:
		return v.CutPlan.Placeholder
	case KindTemplatePlan:
		return v.TemplatePlan.Placeholder
	case KindAssetSuggestions:
		return v.Assets.Placeholder
	default:
		return false
	}
}

// Validate checks payload as an artifact of the given kind. On failure the
// error is a *Violations listing every problem found.
func Validate(kind Kind, payload []byte, vctx Context) (Validated, error) {
	if _, ok := shapes[kind]; !ok {
		return Validated{}, fmt.Errorf("validate: unknown artifact kind %q", kind)
	}
	c := &collector{}
	if kind.timed() && vctx.DurationUs <= 0 {
		c.add("durationUs", "source duration must be positive, got %d", vctx.DurationUs)
		return Validated{}, c.err(kind)
	}
	if !checkStructure(kind, payload, c) || !c.empty() {
		return Validated{}, c.err(kind)
	}

	out := Validated{Kind: kind}
	var target any
	switch kind {
	case KindTranscript:
		out.Transcript = &Transcript{}
		target = out.Transcript
	case KindCutPlan:
		out.CutPlan = &CutPlan{}
		target = out.CutPlan
	case KindTemplatePlan:
		out.TemplatePlan = &TemplatePlan{}
		target = out.TemplatePlan
	case KindAssetSuggestions:
		out.Assets = &AssetSuggestions{}
		target = out.Assets
	case KindTimeline:
		out.Timeline = &Timeline{}
		target = out.Timeline
	case KindProgress:
		out.Progress = &Progress{}
		target = out.Progress
	}
	if err := json.Unmarshal(payload, target); err != nil {
		c.add("", "decode typed payload: %v", err)
		return Validated{}, c.err(kind)
	}

	switch kind {
	case KindTranscript:
		checkTranscript(out.Transcript, vctx, c)
	case KindCutPlan:
		checkCutPlan(out.CutPlan, vctx, c)
	case KindTemplatePlan:
		checkTemplatePlan(out.TemplatePlan, vctx, c)
	case KindAssetSuggestions:
		checkAssetSuggestions(out.Assets, vctx, c)
	case KindTimeline:
		checkTimeline(out.Timeline, vctx, c)
	case KindProgress:
		checkProgress(out.Progress, c)
	}
	if err := c.err(kind); err != nil {
		return Validated{}, err
	}
	return out, nil
}

// ValidateValue encodes value and validates the result. Builtin producers use
// it so typed output goes through the same checks as provider output.
func ValidateValue(kind Kind, value any, vctx Context) (Validated, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return Validated{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return Validate(kind, payload, vctx)
}

// AsViolations extracts a *Violations from err.
func AsViolations(err error) (*Violations, bool) {
	var v *Violations
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

func decodeGeneric(payload []byte, dst *any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}
