package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pengelbrecht/tally/internal/steps"
)

func TestSessionEval(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  string
		value int
	}{
		{"short add", []string{"=50", "+70"}, "= 120", 120},
		{"short subtract", []string{"=20", "-15"}, "= 5", 5},
		{"add negative", []string{"=0", "+-5"}, "= -5", -5},
		{"phrase with keyword", []string{"Given I have entered 10 into the calculator", "When I add 50"}, "= 60", 60},
		{"phrase without keyword", []string{"I have entered 3 into the calculator", "I subtract 4"}, "= -1", -1},
		{"seed", []string{"=7"}, "value 7", 7},
		{"seed phrase", []string{"I have entered 8 into the calculator"}, "value 8", 8},
		{"check short", []string{"+2", "?2"}, "result is 2", 2},
		{"check phrase", []string{"+2", "Then the result should be 2"}, "ok", 2},
		{"reset", []string{"=9", "reset"}, "reset to 0", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(nil)
			var got string
			for _, line := range tc.lines {
				out, err := s.Eval(line)
				if err != nil {
					t.Fatalf("Eval(%q): %v", line, err)
				}
				got = out
			}
			if got != tc.want {
				t.Errorf("last output = %q, want %q", got, tc.want)
			}
			if s.Value() != tc.value {
				t.Errorf("value = %d, want %d", s.Value(), tc.value)
			}
		})
	}
}

func TestSessionEvalErrors(t *testing.T) {
	s := NewSession(nil)

	if out, err := s.Eval("?0"); err != nil || out != "result is 0" {
		t.Errorf("check before result = %q, %v", out, err)
	}
	if _, err := s.Eval("I multiply 3"); !errors.Is(err, steps.ErrUndefined) {
		t.Errorf("unknown phrase: %v", err)
	}
	s.Eval("+1")
	var mismatch *steps.MismatchError
	if _, err := s.Eval("?5"); !errors.As(err, &mismatch) {
		t.Errorf("wrong check: %v", err)
	}
	if _, err := s.Eval("quit"); !errors.Is(err, errQuit) {
		t.Errorf("quit: %v", err)
	}
	if out, err := s.Eval("   "); out != "" || err != nil {
		t.Errorf("blank line = %q, %v", out, err)
	}
}

func submit(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModelSubmit(t *testing.T) {
	m := New(nil)
	m, _ = submit(t, m, "=50")
	m, _ = submit(t, m, "I add 70")
	m, _ = submit(t, m, "?121")

	if m.Value() != 120 {
		t.Errorf("value = %d, want 120", m.Value())
	}
	if len(m.history) != 3 {
		t.Fatalf("history = %d entries, want 3", len(m.history))
	}
	if !m.history[2].failed || !strings.Contains(m.history[2].output, "expected 121, got 120") {
		t.Errorf("last entry = %+v", m.history[2])
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}

	view := m.View()
	for _, want := range []string{"120", "I add 70", "= 120", "expected 121"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelQuit(t *testing.T) {
	m := New(nil)
	if _, cmd := submit(t, m, "exit"); cmd == nil {
		t.Fatal("expected quit command")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit should produce tea.QuitMsg")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command on esc")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should produce tea.QuitMsg")
	}
}

func TestModelBlankSubmit(t *testing.T) {
	m, _ := submit(t, New(nil), "   ")
	if len(m.history) != 0 {
		t.Errorf("blank input should not add history")
	}
}

func TestModelWindowSize(t *testing.T) {
	m := New(nil)
	for i := 0; i < 20; i++ {
		m, _ = submit(t, m, "+1")
	}
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	m = next.(Model)
	if m.input.Width != 56 {
		t.Errorf("input width = %d, want 56", m.input.Width)
	}
	if got := strings.Count(m.View(), "= "); got != 4 {
		t.Errorf("visible history lines = %d, want 4", got)
	}
}
