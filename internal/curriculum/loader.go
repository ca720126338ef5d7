package curriculum

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source loads a catalogue once at start-up.
type Source interface {
	LoadCatalogue(ctx context.Context) (*Catalogue, error)
}

// Loader reads catalogue documents from a directory tree.
//
// Every *.yaml / *.yml file is a Document. A <code>.tips.md file adds one
// tutor tip per "- " bullet line to the topic with that code.
type Loader struct {
	rootDir    string
	doc        Document
	tips       map[string][]string
	violations map[string][]string
}

// NewLoader creates a loader and reads every document under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:    rootDir,
		tips:       make(map[string][]string),
		violations: make(map[string][]string),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded",
		"root", rootDir,
		"topics", len(l.doc.Topics),
		"gap_patterns", len(l.doc.GapPatterns),
	)
	return l, nil
}

// Document returns everything that was read merged into one document, with
// the tips files folded into their topics.
func (l *Loader) Document() Document {
	doc := Document{
		Grades:      slices.Clone(l.doc.Grades),
		Topics:      make([]TopicNode, len(l.doc.Topics)),
		GapPatterns: slices.Clone(l.doc.GapPatterns),
	}
	for i, t := range l.doc.Topics {
		t = cloneTopic(t)
		t.TutorTips = append(t.TutorTips, l.tips[t.Code]...)
		doc.Topics[i] = t
	}
	return doc
}

// Catalogue builds the immutable catalogue from what was read.
func (l *Loader) Catalogue() (*Catalogue, error) {
	return BuildCatalogue(l.Document())
}

// Violations returns schema violations per file. Files with violations are
// not part of the catalogue.
func (l *Loader) Violations() map[string][]string {
	out := make(map[string][]string, len(l.violations))
	for k, v := range l.violations {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// DirSource loads a catalogue from a directory of YAML documents.
type DirSource struct {
	Root string
}

func (s DirSource) LoadCatalogue(_ context.Context) (*Catalogue, error) {
	l, err := NewLoader(s.Root)
	if err != nil {
		return nil, err
	}
	return l.Catalogue()
}

// BuildCatalogue turns a merged document into a catalogue, falling back to
// the default grade scale when the document declares none.
func BuildCatalogue(doc Document) (*Catalogue, error) {
	labels := doc.Grades
	if len(labels) == 0 {
		labels = DefaultGradeLabels
	}
	scale, err := NewGradeScale(labels)
	if err != nil {
		return nil, fmt.Errorf("building grade scale: %w", err)
	}
	return NewCatalogue(doc.Topics, scale, NewGapPatternTable(doc.GapPatterns))
}

func (l *Loader) loadAll() error {
	return filepath.WalkDir(l.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".tips.md"):
			return l.loadTips(path)
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			return l.loadDocument(path)
		}
		return nil
	})
}

func (l *Loader) loadDocument(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	violations, err := ValidateDocument(data)
	if err != nil {
		slog.Warn("skipping invalid catalogue YAML", "path", path, "error", err)
		return nil
	}
	if len(violations) > 0 {
		slog.Warn("skipping catalogue document with schema violations",
			"path", path,
			"violations", len(violations),
		)
		l.violations[path] = violations
		return nil
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid catalogue YAML", "path", path, "error", err)
		return nil
	}

	if len(doc.Grades) > 0 {
		if len(l.doc.Grades) > 0 {
			return fmt.Errorf("%s: grade scale already declared", path)
		}
		l.doc.Grades = doc.Grades
	}
	l.doc.Topics = append(l.doc.Topics, doc.Topics...)
	l.doc.GapPatterns = append(l.doc.GapPatterns, doc.GapPatterns...)
	return nil
}

func (l *Loader) loadTips(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	code := strings.TrimSuffix(filepath.Base(path), ".tips.md")
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if tip, ok := strings.CutPrefix(line, "- "); ok && strings.TrimSpace(tip) != "" {
			l.tips[code] = append(l.tips[code], strings.TrimSpace(tip))
		}
	}
	return sc.Err()
}

// WriteDocument writes doc as a single YAML catalogue document.
func WriteDocument(doc Document, path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
