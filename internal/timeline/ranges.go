package timeline

import (
	"slices"

	"splice/internal/artifact"
)

// Range is a half-open span of source time in microseconds.
type Range struct {
	StartUs int64 `json:"startUs"`
	EndUs   int64 `json:"endUs"`
}

// NormalizeRanges clamps ranges to [0, durationUs], drops empty ones, sorts
// by start, and merges overlapping or touching ranges.
func NormalizeRanges(ranges []artifact.RemoveRange, durationUs int64) []Range {
	normalized := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		start := clamp(r.StartUs, 0, durationUs)
		end := clamp(r.EndUs, 0, durationUs)
		if end > start {
			normalized = append(normalized, Range{StartUs: start, EndUs: end})
		}
	}
	slices.SortFunc(normalized, func(a, b Range) int {
		switch {
		case a.StartUs < b.StartUs:
			return -1
		case a.StartUs > b.StartUs:
			return 1
		default:
			return 0
		}
	})

	merged := make([]Range, 0, len(normalized))
	for _, r := range normalized {
		if n := len(merged); n > 0 && r.StartUs <= merged[n-1].EndUs {
			if r.EndUs > merged[n-1].EndUs {
				merged[n-1].EndUs = r.EndUs
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// InvertRanges returns the spans of [0, durationUs] not covered by the
// normalized remove ranges.
func InvertRanges(removed []Range, durationUs int64) []Range {
	if durationUs <= 0 {
		return nil
	}
	keep := make([]Range, 0, len(removed)+1)
	var cursor int64
	for _, r := range removed {
		if r.StartUs > cursor {
			keep = append(keep, Range{StartUs: cursor, EndUs: r.StartUs})
		}
		cursor = max(cursor, r.EndUs)
	}
	if cursor < durationUs {
		keep = append(keep, Range{StartUs: cursor, EndUs: durationUs})
	}
	return keep
}

// segment is a keep range and its position on the output timeline.
type segment struct {
	source  Range
	startUs int64
}

// mapper converts source time to cut-timeline time.
type mapper []segment

func newMapper(keep []Range) mapper {
	m := make(mapper, 0, len(keep))
	var cursor int64
	for _, k := range keep {
		m = append(m, segment{source: k, startUs: cursor})
		cursor += k.EndUs - k.StartUs
	}
	return m
}

// Map returns the smallest cut-timeline span covering every kept part of
// the source span. ok is false when the span lies entirely in removed
// material.
func (m mapper) Map(startUs, endUs int64) (Range, bool) {
	var out Range
	found := false
	for _, seg := range m {
		lo := max(startUs, seg.source.StartUs)
		hi := min(endUs, seg.source.EndUs)
		if hi <= lo {
			continue
		}
		mappedStart := seg.startUs + (lo - seg.source.StartUs)
		mappedEnd := seg.startUs + (hi - seg.source.StartUs)
		if !found {
			out = Range{StartUs: mappedStart, EndUs: mappedEnd}
			found = true
			continue
		}
		out.EndUs = mappedEnd
	}
	return out, found
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
