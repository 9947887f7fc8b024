package update

import "testing"

func TestInstallMethodFor(t *testing.T) {
	cases := []struct {
		path string
		want InstallMethod
	}{
		{"/opt/homebrew/bin/tally", InstallHomebrew},
		{"/usr/local/Cellar/tally/1.0.0/bin/tally", InstallHomebrew},
		{"/home/linuxbrew/.linuxbrew/bin/tally", InstallHomebrew},
		{"/home/me/go/bin/tally", InstallGo},
		{"/usr/local/bin/tally", InstallBinary},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			if got := installMethodFor(tc.path); got != tc.want {
				t.Errorf("installMethodFor(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestIsRelease(t *testing.T) {
	cases := map[string]bool{
		"":       false,
		"dev":    false,
		"v1.2.3": true,
		"0.4.0":  true,
		"main":   false,
	}
	for version, want := range cases {
		if got := IsRelease(version); got != want {
			t.Errorf("IsRelease(%q) = %v, want %v", version, got, want)
		}
	}
}

func TestInstallMethodString(t *testing.T) {
	if InstallHomebrew.String() != "homebrew" || InstallGo.String() != "go install" || InstallBinary.String() != "binary" {
		t.Error("unexpected install method names")
	}
}
