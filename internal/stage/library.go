package stage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"splice/internal/artifact"
	"splice/internal/fileutil"
	"splice/internal/stageexec"
	"splice/internal/textutil"
)

// minMatchScore is the lowest similarity accepted as a library match.
const minMatchScore = 0.2

var (
	imageExtensions = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".mov": {}, ".m4v": {}, ".mkv": {}, ".webm": {}}
)

type libraryEntry struct {
	path string
	kind string
	fp   *textutil.Fingerprint
}

// Library resolves asset suggestions against a local stock media directory.
type Library struct {
	dir        string
	extensions map[string]struct{}

	once    sync.Once
	entries []libraryEntry
	idf     map[string]float64
	err     error
}

// NewLibrary returns a library over dir limited to the given extensions.
// An empty extension list accepts every known image and video extension.
func NewLibrary(dir string, extensions []string) *Library {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Library{dir: dir, extensions: exts}
}

func (l *Library) index() error {
	l.once.Do(func() {
		if strings.TrimSpace(l.dir) == "" {
			l.err = fmt.Errorf("asset library directory not configured")
			return
		}
		corpus := textutil.NewCorpus()
		l.err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if len(l.extensions) > 0 {
				if _, ok := l.extensions[ext]; !ok {
					return nil
				}
			}
			kind := mediaKind(ext)
			if kind == "" {
				return nil
			}
			rel, err := filepath.Rel(l.dir, path)
			if err != nil {
				rel = filepath.Base(path)
			}
			fp := textutil.NewFingerprint(strings.TrimSuffix(rel, filepath.Ext(rel)))
			if fp == nil {
				return nil
			}
			corpus.Add(fp)
			l.entries = append(l.entries, libraryEntry{path: path, kind: kind, fp: fp})
			return nil
		})
		l.idf = corpus.IDF()
	})
	return l.err
}

func mediaKind(ext string) string {
	if _, ok := imageExtensions[ext]; ok {
		return artifact.AssetImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return artifact.AssetVideo
	}
	return ""
}

// Match returns the best library file for a query of the given kind.
func (l *Library) Match(query, kind string) (string, float64, bool) {
	if err := l.index(); err != nil {
		return "", 0, false
	}
	q := textutil.NewFingerprint(query).WithIDF(l.idf)
	if q == nil {
		return "", 0, false
	}
	var (
		best      string
		bestScore float64
	)
	for _, e := range l.entries {
		if kind != "" && e.kind != kind {
			continue
		}
		score := q.Similarity(e.fp.WithIDF(l.idf))
		if score > bestScore {
			best, bestScore = e.path, score
		}
	}
	if bestScore < minMatchScore {
		return "", bestScore, false
	}
	return best, bestScore, true
}

// Resolve is the assets.library builtin. Each suggestion is matched against
// the library and the chosen file is copied into the project's assets
// directory. Suggestions without a match are dropped. The library is only
// indexed once a suggestion needs it.
func (l *Library) Resolve(ctx context.Context, inv stageexec.Invocation) (any, error) {
	req, err := requestFrom(inv)
	if err != nil {
		return nil, err
	}
	if req.Assets == nil {
		return nil, missingInput("asset suggestions")
	}
	if strings.TrimSpace(req.AssetsDir) == "" {
		return nil, missingInput("project assets directory")
	}
	out := &artifact.AssetSuggestions{
		Suggestions: make([]artifact.Suggestion, 0, len(req.Assets.Suggestions)),
		Provider:    req.Assets.Provider,
		Placeholder: req.Assets.Placeholder,
	}
	for _, s := range req.Assets.Suggestions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.LocalPath != "" {
			if _, err := os.Stat(s.LocalPath); err == nil {
				out.Suggestions = append(out.Suggestions, s)
				continue
			}
		}
		if err := l.index(); err != nil {
			return nil, &stageexec.Failure{Kind: stageexec.KindIOError, Message: fmt.Sprintf("index asset library: %v", err)}
		}
		src, _, ok := l.Match(s.Query, s.Kind)
		if !ok {
			continue
		}
		dst := filepath.Join(req.AssetsDir, textutil.Slug(s.ID)+strings.ToLower(filepath.Ext(src)))
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			return nil, &stageexec.Failure{Kind: stageexec.KindIOError, Message: fmt.Sprintf("copy %s: %v", src, err)}
		}
		s.LocalPath = dst
		out.Suggestions = append(out.Suggestions, s)
	}
	return out, nil
}
