// Package update checks for and installs new tally releases from GitHub.
package update

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/creativeprojects/go-selfupdate"
)

// Repository is the GitHub slug releases are published under.
const Repository = "pengelbrecht/tally"

// checkTimeout bounds a release lookup.
const checkTimeout = 30 * time.Second

// InstallMethod describes how the running binary was installed.
type InstallMethod int

const (
	InstallBinary InstallMethod = iota
	InstallHomebrew
	InstallGo
)

func (m InstallMethod) String() string {
	switch m {
	case InstallHomebrew:
		return "homebrew"
	case InstallGo:
		return "go install"
	default:
		return "binary"
	}
}

// Release is the subset of release information callers need.
type Release struct {
	Version string
	URL     string
	Notes   string
}

// DetectInstallMethod inspects the executable path.
func DetectInstallMethod() InstallMethod {
	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return InstallBinary
	}
	return installMethodFor(exe)
}

func installMethodFor(exe string) InstallMethod {
	p := filepath.ToSlash(exe)
	switch {
	case strings.Contains(p, "/Cellar/"), strings.Contains(p, "/homebrew/"), strings.Contains(p, "/linuxbrew/"):
		return InstallHomebrew
	case strings.Contains(p, "/go/bin/"):
		return InstallGo
	default:
		return InstallBinary
	}
}

// CheckForUpdate reports the latest release and whether it is newer than
// current. Development builds ("dev" or empty) never report an update.
func CheckForUpdate(current string) (*Release, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(Repository))
	if err != nil {
		return nil, false, fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	rel := &Release{Version: latest.Version(), URL: latest.URL, Notes: latest.ReleaseNotes}
	if !IsRelease(current) {
		return rel, false, nil
	}
	return rel, latest.GreaterThan(normalize(current)), nil
}

// Update replaces the running executable with the latest release.
func Update(current string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(Repository))
	if err != nil {
		return fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", Repository)
	}
	if IsRelease(current) && !latest.GreaterThan(normalize(current)) {
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("install %s: %w", latest.Version(), err)
	}
	return nil
}

// IsRelease reports whether version looks like a tagged release.
func IsRelease(version string) bool {
	v := normalize(version)
	return v != "" && v != "dev" && v[0] >= '0' && v[0] <= '9'
}

func normalize(version string) string {
	return strings.TrimPrefix(strings.TrimSpace(version), "v")
}
