package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, stderr, code := execute(t, "init", "--dir", dir); code != ExitSuccess {
		t.Fatalf("init exit %d: %s", code, stderr)
	}
	return dir
}

func writeFeature(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, "features", name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write feature: %v", err)
	}
	return path
}

func TestCLIWorkflow(t *testing.T) {
	dir := initProject(t)

	for _, p := range []string{".tally/config.json", ".tally/.gitignore", "features/calculator.feature"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Fatalf("init did not create %s: %v", p, err)
		}
	}

	if _, _, code := execute(t, "init", "--dir", dir); code != ExitConfig {
		t.Errorf("second init exit = %d, want %d", code, ExitConfig)
	}

	out, stderr, code := execute(t, "run", "--dir", dir)
	if code != ExitSuccess {
		t.Fatalf("run exit %d\nstdout: %s\nstderr: %s", code, out, stderr)
	}
	if !strings.Contains(out, "2 scenarios (2 passed)") {
		t.Errorf("unexpected run output:\n%s", out)
	}

	out, _, code = execute(t, "history", "--dir", dir, "--json")
	if code != ExitSuccess {
		t.Fatalf("history exit %d", code)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("parse history json: %v\n%s", err, out)
	}
	if len(records) != 1 {
		t.Fatalf("history has %d records, want 1", len(records))
	}

	out, _, code = execute(t, "history", "latest", "--dir", dir)
	if code != ExitSuccess || !strings.Contains(out, "2 passed") {
		t.Errorf("history latest exit %d:\n%s", code, out)
	}

	if _, _, code := execute(t, "history", "nope", "--dir", dir); code != ExitUsage {
		t.Errorf("history of unknown run exit = %d, want %d", code, ExitUsage)
	}
}

func TestRunFailures(t *testing.T) {
	dir := initProject(t)
	writeFeature(t, dir, "broken.feature", `Feature: broken
Scenario: wrong sum
  Given I have entered 1 into the calculator
  When I add 1
  Then the result should be 3
`)

	out, _, code := execute(t, "run", "--dir", dir, "--format", "progress", "--no-record")
	if code != ExitFailed {
		t.Fatalf("run exit = %d, want %d\n%s", code, ExitFailed, out)
	}
	if !strings.Contains(out, "expected 3, got 2") {
		t.Errorf("missing failure detail:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".tally", "records")); err == nil {
		entries, _ := os.ReadDir(filepath.Join(dir, ".tally", "records"))
		if len(entries) != 0 {
			t.Errorf("--no-record still wrote %d records", len(entries))
		}
	}

	out, _, code = execute(t, "run", "--dir", dir, "--tags", "~@nothing", "--format", "json", "--no-record",
		filepath.Join(dir, "features", "calculator.feature"))
	if code != ExitSuccess {
		t.Fatalf("run of single file exit %d:\n%s", code, out)
	}
	var res struct {
		Summary struct {
			Scenarios int `json:"scenarios"`
			Passed    int `json:"passed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("parse json report: %v\n%s", err, out)
	}
	if res.Summary.Scenarios != 2 || res.Summary.Passed != 2 {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestRunParseError(t *testing.T) {
	dir := initProject(t)
	writeFeature(t, dir, "bad.feature", "Feature: bad\nScenario: s\n  Given I add 1\nwhatever\n")

	_, stderr, code := execute(t, "run", "--dir", dir)
	if code != ExitParse {
		t.Fatalf("exit = %d, want %d", code, ExitParse)
	}
	if !strings.Contains(stderr, "bad.feature:4") {
		t.Errorf("stderr should locate the error: %s", stderr)
	}
}

func TestRunUsageErrors(t *testing.T) {
	dir := initProject(t)

	if _, _, code := execute(t, "run", "--dir", dir, "--format", "xml"); code != ExitUsage {
		t.Errorf("bad format exit = %d, want %d", code, ExitUsage)
	}
	empty := t.TempDir()
	if _, _, code := execute(t, "run", "--dir", dir, empty); code != ExitUsage {
		t.Errorf("no features exit = %d, want %d", code, ExitUsage)
	}
	if _, _, code := execute(t, "bogus"); code != ExitUsage {
		t.Errorf("unknown command exit = %d, want %d", code, ExitUsage)
	}
}

func TestBadConfig(t *testing.T) {
	dir := initProject(t)
	if err := os.WriteFile(filepath.Join(dir, ".tally", "config.json"), []byte(`{"parallel": 500}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, code := execute(t, "run", "--dir", dir); code != ExitConfig {
		t.Errorf("exit = %d, want %d", code, ExitConfig)
	}
}

func TestEval(t *testing.T) {
	out, _, code := execute(t, "eval", "=50", "+70")
	if code != ExitSuccess {
		t.Fatalf("eval exit %d", code)
	}
	if !strings.Contains(out, "+70  = 120") || !strings.Contains(out, "value: 120") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, _, code = execute(t, "eval", "--json", "--", "=20", "-15", "?5")
	if code != ExitSuccess {
		t.Fatalf("eval --json exit %d: %s", code, out)
	}
	var payload struct {
		Value int `json:"value"`
		Steps []struct {
			Input string `json:"input"`
		} `json:"steps"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if payload.Value != 5 || len(payload.Steps) != 3 {
		t.Errorf("payload = %+v", payload)
	}

	out, _, code = execute(t, "eval", "I have entered 0 into the calculator", "I add 1", "?7", "+1")
	if code != ExitFailed {
		t.Fatalf("failing eval exit = %d, want %d", code, ExitFailed)
	}
	if strings.Contains(out, "+1  ") {
		t.Errorf("evaluation should stop at the first error:\n%s", out)
	}
}

func TestStepsCommand(t *testing.T) {
	out, _, code := execute(t, "steps")
	if code != ExitSuccess {
		t.Fatalf("steps exit %d", code)
	}
	for _, phrase := range []string{
		"I have entered {n} into the calculator",
		"I add {n}",
		"I subtract {n}",
		"the result should be {n}",
	} {
		if !strings.Contains(out, phrase) {
			t.Errorf("steps output missing %q:\n%s", phrase, out)
		}
	}

	out, _, _ = execute(t, "steps", "--json")
	var rows []map[string]string
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if len(rows) != 4 || rows[0]["keyword"] != "Given" {
		t.Errorf("rows = %v", rows)
	}
}

func TestVersion(t *testing.T) {
	out, _, code := execute(t, "version")
	if code != ExitSuccess || strings.TrimSpace(out) != "tally "+Version {
		t.Errorf("version = %q (exit %d)", out, code)
	}
}

func TestHistoryEmpty(t *testing.T) {
	dir := initProject(t)
	out, _, code := execute(t, "history", "--dir", dir)
	if code != ExitSuccess || !strings.Contains(out, "No runs recorded yet.") {
		t.Errorf("history = %q (exit %d)", out, code)
	}
}
