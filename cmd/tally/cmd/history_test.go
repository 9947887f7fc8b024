package cmd

import (
	"strings"
	"testing"

	"github.com/pengelbrecht/tally/internal/runrecord"
)

func TestHistoryRemoveAndClear(t *testing.T) {
	dir := initProject(t)
	for i := 0; i < 3; i++ {
		if _, stderr, code := execute(t, "run", "--dir", dir); code != ExitSuccess {
			t.Fatalf("run exit %d: %s", code, stderr)
		}
	}
	ids, err := runrecord.NewStore(dir).List()
	if err != nil || len(ids) == 0 {
		t.Fatalf("List = %v, %v", ids, err)
	}

	out, _, code := execute(t, "history", "--dir", dir, "--rm", ids[0])
	if code != ExitSuccess || !strings.Contains(out, "Removed run "+ids[0]) {
		t.Errorf("--rm = %q (exit %d)", out, code)
	}
	if runrecord.NewStore(dir).Exists(ids[0]) {
		t.Error("record still present after --rm")
	}
	if _, _, code := execute(t, "history", "--dir", dir, "--rm", ids[0]); code != ExitUsage {
		t.Errorf("--rm of missing run exit = %d, want %d", code, ExitUsage)
	}
	if _, _, code := execute(t, "history", "--dir", dir, "--rm", "../config"); code != ExitUsage {
		t.Errorf("--rm with a path exit = %d, want %d", code, ExitUsage)
	}
	if _, _, code := execute(t, "history", "../../x", "--dir", dir); code != ExitUsage {
		t.Errorf("history with a path exit = %d, want %d", code, ExitUsage)
	}

	out, _, code = execute(t, "history", "--dir", dir, "--clear")
	if code != ExitSuccess || !strings.Contains(out, "Removed") {
		t.Errorf("--clear = %q (exit %d)", out, code)
	}
	if left, _ := runrecord.NewStore(dir).List(); len(left) != 0 {
		t.Errorf("records left after --clear: %v", left)
	}
}
