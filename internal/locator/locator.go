// Package locator resolves model, scaler and class map files by probing an
// ordered list of candidate paths around the executable.
package locator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// Kind identifies the artifact being searched for.
type Kind string

const (
	KindModel    Kind = "model"
	KindScaler   Kind = "scaler"
	KindClassMap Kind = "classmap"
	KindPricing  Kind = "pricing"
)

// DefaultMaxDepth is how many ancestor directories above the base are probed.
const DefaultMaxDepth = 5

// label is used in user-facing messages.
func (k Kind) label() string {
	switch k {
	case KindModel:
		return "Model"
	case KindScaler:
		return "Scaler"
	case KindClassMap:
		return "Class map"
	case KindPricing:
		return "Pricing table"
	default:
		return string(k)
	}
}

// DefaultSubdirs are the directory conventions probed relative to the base dir.
var DefaultSubdirs = map[Kind][]string{
	KindModel:    {"weights", "model", filepath.Join("ml_model", "weights")},
	KindScaler:   {".", "weights", filepath.Join("ml_model", "weights")},
	KindClassMap: {".", "weights", "ml_model"},
	KindPricing:  {".", "data", "weights"},
}

// ExistsFunc reports whether a candidate path is usable.
type ExistsFunc func(path string) bool

// OSExists reports whether path names an existing regular file.
func OSExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Locator builds candidate lists and resolves them against an existence check.
type Locator struct {
	BaseDir   string
	Subdirs   map[Kind][]string
	ExtraDirs []string
	MaxDepth  int
	Exists    ExistsFunc
}

// New returns a Locator rooted at baseDir with the default conventions.
func New(baseDir string) *Locator {
	return &Locator{
		BaseDir:  baseDir,
		Subdirs:  DefaultSubdirs,
		MaxDepth: DefaultMaxDepth,
		Exists:   OSExists,
	}
}

// WithExtraDirs returns a copy of l that also probes dirs after the fixed
// subdirectories.
func (l *Locator) WithExtraDirs(dirs ...string) *Locator {
	cp := *l
	cp.ExtraDirs = append(append([]string(nil), l.ExtraDirs...), dirs...)
	return &cp
}

// Result is the outcome of a search. Candidates always holds every path that
// was considered, in probe order.
type Result struct {
	Kind       Kind
	Hint       string
	Path       string
	Found      bool
	Candidates []string
}

// Err returns an artifact-not-found error listing the probed paths, or nil
// when the artifact was found.
func (r Result) Err() error {
	if r.Found {
		return nil
	}
	return errors.Newf("%s file not found. Searched: %v", r.Kind.label(), r.Candidates).
		Category(errors.CategoryArtifactNotFound).
		Context("artifact_kind", string(r.Kind)).
		Context("attempted_paths", r.Candidates).
		Build()
}

// Candidates returns the ordered, de-duplicated probe list for hint. It does
// not touch the filesystem.
func (l *Locator) Candidates(hint string, kind Kind) []string {
	if hint == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	add(hint)

	if l.BaseDir == "" {
		return out
	}

	// A relative hint with directories, such as "sub/model.tflite", is tried
	// as given under each directory before its base name.
	names := []string{filepath.Base(hint)}
	if rel := filepath.Clean(hint); !filepath.IsAbs(rel) && rel != names[0] {
		names = []string{rel, names[0]}
	}
	addUnder := func(dir string) {
		for _, name := range names {
			add(filepath.Join(dir, name))
		}
	}

	for _, sub := range l.Subdirs[kind] {
		addUnder(filepath.Join(l.BaseDir, sub))
	}

	for _, dir := range l.ExtraDirs {
		if dir != "" {
			addUnder(dir)
		}
	}

	dir := filepath.Clean(l.BaseDir)
	for range l.MaxDepth + 1 {
		addUnder(dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return out
}

// Resolve returns the first candidate accepted by the existence check.
func (l *Locator) Resolve(hint string, kind Kind) Result {
	exists := l.Exists
	if exists == nil {
		exists = OSExists
	}

	res := Result{Kind: kind, Hint: hint, Candidates: l.Candidates(hint, kind)}
	for _, c := range res.Candidates {
		if exists(c) {
			res.Path = c
			res.Found = true
			break
		}
	}

	GetLogger().Debug("artifact search finished",
		logger.String("kind", string(kind)),
		logger.String("hint", hint),
		logger.Bool("found", res.Found),
		logger.Int("candidates", len(res.Candidates)))

	return res
}

// String is used in debug output.
func (r Result) String() string {
	if r.Found {
		return r.Path
	}
	return fmt.Sprintf("unresolved(%s)", r.Hint)
}
