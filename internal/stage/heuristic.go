package stage

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	"splice/internal/artifact"
)

// Heuristics tunes the local cut planner.
type Heuristics struct {
	FillerWords []string
	// MinPause is the shortest silence between words that gets trimmed.
	MinPause time.Duration
	// KeepPause is the silence left in place of a trimmed pause.
	KeepPause time.Duration
}

// DefaultHeuristics returns the planner defaults.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		FillerWords: []string{"um", "umm", "uh", "uhh", "uhm", "erm", "er", "ah", "hmm", "mm", "mhm"},
		MinPause:    1500 * time.Millisecond,
		KeepPause:   500 * time.Millisecond,
	}
}

var folder = cases.Fold()

func normalizeToken(text string) string {
	trimmed := strings.TrimFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return folder.String(trimmed)
}

// HeuristicCuts removes filler words and long pauses from the transcript.
func HeuristicCuts(t *artifact.Transcript, durationUs int64, h Heuristics) *artifact.CutPlan {
	fillers := make(map[string]struct{}, len(h.FillerWords))
	for _, f := range h.FillerWords {
		fillers[normalizeToken(f)] = struct{}{}
	}
	minPause := h.MinPause.Microseconds()
	keepHalf := h.KeepPause.Microseconds() / 2

	words := slices.Clone(Words(t))
	slices.SortStableFunc(words, func(a, b artifact.Word) int {
		return cmp.Compare(a.StartUs, b.StartUs)
	})

	type candidate struct {
		r       artifact.RemoveRange
		summary string
	}
	var found []candidate
	add := func(start, end int64, reason, summary string, confidence float64, wordIDs []string) {
		start = max(start, 0)
		end = min(end, durationUs)
		if end <= start {
			return
		}
		found = append(found, candidate{
			r: artifact.RemoveRange{
				StartUs:    start,
				EndUs:      end,
				Reason:     reason,
				Confidence: confidence,
				WordIDs:    wordIDs,
			},
			summary: summary,
		})
	}

	var cursor int64
	for i, w := range words {
		token := w.Normalized
		if token == "" {
			token = w.Text
		}
		if _, ok := fillers[normalizeToken(token)]; ok {
			add(w.StartUs, w.EndUs, "filler", fmt.Sprintf("filler word %q", strings.TrimSpace(w.Text)), 0.9, []string{w.ID})
		}
		if minPause > 0 && w.StartUs-cursor >= minPause {
			start := cursor + keepHalf
			if i == 0 {
				start = 0
			}
			add(start, w.StartUs-keepHalf, "pause", fmt.Sprintf("%s of silence", time.Duration(w.StartUs-cursor)*time.Microsecond), 0.8, nil)
		}
		cursor = max(cursor, w.EndUs)
	}
	if len(words) > 0 && minPause > 0 && durationUs-cursor >= minPause {
		add(cursor+keepHalf, durationUs, "pause", "trailing silence", 0.8, nil)
	}

	slices.SortStableFunc(found, func(a, b candidate) int {
		return cmp.Compare(a.r.StartUs, b.r.StartUs)
	})
	plan := &artifact.CutPlan{
		RemoveRanges: make([]artifact.RemoveRange, 0, len(found)),
		Rationale:    make([]artifact.Rationale, 0, len(found)),
	}
	for i, c := range found {
		plan.RemoveRanges = append(plan.RemoveRanges, c.r)
		plan.Rationale = append(plan.Rationale, artifact.Rationale{RangeIndex: i, Summary: c.summary})
	}
	return plan
}
