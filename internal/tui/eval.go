package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pengelbrecht/tally/internal/steps"
)

// errQuit signals that the user asked to leave.
var errQuit = errors.New("quit")

// Session applies REPL input to one calculator.
type Session struct {
	registry *steps.Registry
	world    *steps.World
}

// NewSession returns a session over a fresh calculator.
func NewSession(registry *steps.Registry) *Session {
	if registry == nil {
		registry = steps.Default()
	}
	return &Session{registry: registry, world: steps.NewWorld()}
}

// Value returns the accumulator.
func (s *Session) Value() int {
	return s.world.Calc.Value()
}

// Eval applies one line of input and returns text describing the outcome.
//
// Short forms: "=N" seeds the accumulator, "+N" adds, "-N" subtracts,
// "?N" checks the last result, "reset" starts over. Anything else is
// treated as a step phrase, with an optional leading Given/When/Then/And/But.
func (s *Session) Eval(line string) (string, error) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return "", nil
	case "quit", "exit", "q":
		return "", errQuit
	case "reset", "clear":
		s.world = steps.NewWorld()
		return "reset to 0", nil
	}

	if op, rest := line[0], strings.TrimSpace(line[1:]); strings.ContainsRune("=+-?", rune(op)) && rest != "" {
		if n, err := strconv.Atoi(rest); err == nil {
			return s.short(op, n)
		}
	}
	return s.phrase(line)
}

func (s *Session) short(op byte, n int) (string, error) {
	w := s.world
	switch op {
	case '=':
		w.Calc.SetValue(n)
		return fmt.Sprintf("value %d", n), nil
	case '+':
		w.Result = w.Calc.Add(n)
	case '-':
		w.Result = w.Calc.Subtract(n)
	case '?':
		if w.Result != n {
			return "", &steps.MismatchError{Expected: n, Actual: w.Result}
		}
		return fmt.Sprintf("result is %d", n), nil
	}
	return fmt.Sprintf("= %d", w.Result), nil
}

func (s *Session) phrase(line string) (string, error) {
	kind := steps.Any
	if kw, rest, ok := strings.Cut(line, " "); ok {
		switch kw {
		case "Given", "When", "Then":
			kind, _ = steps.ParseKind(kw)
			line = rest
		case "And", "But", "*":
			line = rest
		}
	}

	m, err := s.registry.Match(kind, line)
	if err != nil {
		return "", err
	}
	if err := m.Run(s.world); err != nil {
		return "", err
	}

	switch m.Definition.Kind {
	case steps.Then:
		return "ok", nil
	case steps.When:
		return fmt.Sprintf("= %d", s.world.Result), nil
	}
	return fmt.Sprintf("value %d", s.world.Calc.Value()), nil
}
