// Package steps maps scenario step phrases to calculator operations.
//
// Phrases are written with {n} placeholders, e.g. "I add {n}". Each
// placeholder captures the text at that position and is parsed as a base-10
// integer before the handler runs. Dispatch goes through an explicit table
// held by a Registry; there is no reflection or naming convention involved.
package steps

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pengelbrecht/tally/internal/calculator"
)

var (
	// ErrUndefined is returned when no definition matches a step.
	ErrUndefined = errors.New("undefined step")
	// ErrAmbiguous is returned when more than one definition matches a step.
	ErrAmbiguous = errors.New("ambiguous step")
	// ErrBadArgument is returned when a captured argument is not an integer.
	ErrBadArgument = errors.New("bad step argument")
)

// MismatchError reports a failed result check.
type MismatchError struct {
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %d, got %d", e.Expected, e.Actual)
}

// Kind is the Gherkin keyword a definition binds to.
type Kind int

const (
	// Any matches regardless of keyword (used for "*" steps).
	Any Kind = iota
	Given
	When
	Then
)

// String returns the keyword for the kind.
func (k Kind) String() string {
	switch k {
	case Given:
		return "Given"
	case When:
		return "When"
	case Then:
		return "Then"
	default:
		return "*"
	}
}

// ParseKind converts a primary keyword to a Kind. And, But and "*" are not
// primary keywords; callers resolve them against the previous step.
func ParseKind(keyword string) (Kind, bool) {
	switch keyword {
	case "Given":
		return Given, true
	case "When":
		return When, true
	case "Then":
		return Then, true
	case "*":
		return Any, true
	default:
		return Any, false
	}
}

// World is the per-scenario state a step handler works against. Result is
// the outcome of the most recent operation and starts at 0.
type World struct {
	Calc   *calculator.Calculator
	Result int
}

// NewWorld returns a World with a fresh calculator.
func NewWorld() *World {
	return &World{Calc: calculator.New()}
}

// Handler executes a step. args holds one integer per {n} placeholder.
type Handler func(w *World, args []int) error

// Definition is one row of the phrase table.
type Definition struct {
	Kind    Kind
	Phrase  string
	Handler Handler

	pattern *regexp.Regexp
}

// Pattern returns the anchored regular expression compiled from Phrase.
func (d Definition) Pattern() string {
	if d.pattern == nil {
		return ""
	}
	return d.pattern.String()
}

// Registry holds step definitions in registration order.
type Registry struct {
	defs []Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a definition for phrase. It fails if the phrase is empty or
// duplicates an existing phrase of the same kind.
func (r *Registry) Register(kind Kind, phrase string, h Handler) error {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return errors.New("empty step phrase")
	}
	if h == nil {
		return fmt.Errorf("nil handler for %q", phrase)
	}
	for _, d := range r.defs {
		if d.Kind == kind && d.Phrase == phrase {
			return fmt.Errorf("duplicate step %s %q", kind, phrase)
		}
	}
	re, err := compilePhrase(phrase)
	if err != nil {
		return fmt.Errorf("compile %q: %w", phrase, err)
	}
	r.defs = append(r.defs, Definition{Kind: kind, Phrase: phrase, Handler: h, pattern: re})
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(kind Kind, phrase string, h Handler) {
	if err := r.Register(kind, phrase, h); err != nil {
		panic(err)
	}
}

// Definitions returns a copy of the registered definitions.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Match is a definition bound to the raw arguments captured from a step.
type Match struct {
	Definition Definition
	Args       []string
}

// Run parses the captured arguments and invokes the handler.
func (m *Match) Run(w *World) error {
	args := make([]int, 0, len(m.Args))
	for _, raw := range m.Args {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrBadArgument, raw, err)
		}
		args = append(args, n)
	}
	return m.Definition.Handler(w, args)
}

// Match finds the definition for a step. Definitions of the step's kind are
// preferred; when none of them match, definitions of any kind are considered,
// since bindings are resolved by text and the keyword is only a hint.
func (r *Registry) Match(kind Kind, text string) (*Match, error) {
	text = strings.TrimSpace(text)

	var same, other []*Match
	for _, d := range r.defs {
		sub := d.pattern.FindStringSubmatch(text)
		if sub == nil {
			continue
		}
		m := &Match{Definition: d, Args: sub[1:]}
		if kind == Any || d.Kind == Any || d.Kind == kind {
			same = append(same, m)
		} else {
			other = append(other, m)
		}
	}

	candidates := same
	if len(candidates) == 0 {
		candidates = other
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: %s %q", ErrUndefined, kind, text)
	case 1:
		return candidates[0], nil
	default:
		phrases := make([]string, len(candidates))
		for i, c := range candidates {
			phrases[i] = fmt.Sprintf("%s %q", c.Definition.Kind, c.Definition.Phrase)
		}
		return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, text, strings.Join(phrases, ", "))
	}
}

var numberPattern = regexp.MustCompile(`-?\d+`)

// Snippet suggests a definition for an undefined step, replacing integer
// literals in text with {n} placeholders.
func Snippet(kind Kind, text string) string {
	phrase := numberPattern.ReplaceAllString(strings.TrimSpace(text), "{n}")
	if kind == Any {
		kind = Given
	}
	return fmt.Sprintf("registry.MustRegister(steps.%s, %q, func(w *steps.World, args []int) error {\n\treturn nil\n})", kind, phrase)
}

// compilePhrase turns "I add {n}" into ^I add (.*)$ with the literal parts
// quoted.
func compilePhrase(phrase string) (*regexp.Regexp, error) {
	parts := strings.Split(phrase, "{n}")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, "(.*)") + "$")
}
