// Package feature parses Gherkin .feature files into runnable scenarios.
//
// Parsing and pickle compilation are done by cucumber/gherkin. Background
// steps are prepended and outlines expanded before scenarios leave this
// package. Step arguments (data tables, doc strings) are rejected since no
// calculator step takes one.
package feature

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/pengelbrecht/tally/internal/steps"
)

// DefaultPattern matches feature files by base name.
const DefaultPattern = "*.feature"

// Feature is one parsed file.
type Feature struct {
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Line        int        `json:"line"`
	Background  []Step     `json:"background,omitempty"`
	Scenarios   []Scenario `json:"scenarios"`
}

// Scenario is a runnable list of steps. Background steps are already
// prepended, and outlines are already expanded into one Scenario per row.
type Scenario struct {
	Name    string   `json:"name"`
	Tags    []string `json:"tags,omitempty"`
	Line    int      `json:"line"`
	Steps   []Step   `json:"steps"`
	Outline string   `json:"outline,omitempty"`
	Example int      `json:"example,omitempty"`
}

// Step is a single Given/When/Then line. Kind is resolved from the keyword;
// And and But take the kind of the step before them.
type Step struct {
	Keyword string     `json:"keyword"`
	Kind    steps.Kind `json:"-"`
	Text    string     `json:"text"`
	Line    int        `json:"line"`
}

// HasTag reports whether the scenario carries tag (with or without "@").
func (s Scenario) HasTag(tag string) bool {
	tag = "@" + strings.TrimPrefix(tag, "@")
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ParseError describes a syntax problem at a specific line.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// ParseFile reads and parses the feature file at path.
func ParseFile(path string) (*Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}

// Discover returns the feature files under root whose base name matches
// pattern, sorted by path. If root is a file it is returned as is.
func Discover(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "_examples") {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Parse reads a feature from r. name is used in errors and as Feature.Path.
func Parse(name string, r io.Reader) (*Feature, error) {
	newID := (&messages.Incrementing{}).NewId
	doc, err := gherkin.ParseGherkinDocument(r, newID)
	if err != nil {
		return nil, wrapError(name, err)
	}
	return build(name, doc, newID)
}
