package toolcheck

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions compares two version strings using semver.
// Returns -1 if installed < required, 0 if equal, 1 if installed > required.
// A leading "v" is ignored.
func CompareVersions(installed, required string) (int, error) {
	iv, err := parseSemver(installed)
	if err != nil {
		return 0, fmt.Errorf("parsing installed version %q: %w", installed, err)
	}
	rv, err := parseSemver(required)
	if err != nil {
		return 0, fmt.Errorf("parsing required version %q: %w", required, err)
	}
	return iv.Compare(rv), nil
}

// Satisfies reports whether installed is at least minimum.
func Satisfies(installed, minimum string) (bool, error) {
	cmp, err := CompareVersions(installed, minimum)
	if err != nil {
		return false, err
	}
	return cmp >= 0, nil
}

var versionToken = regexp.MustCompile(`v?\d+(\.\d+){0,2}(-[0-9A-Za-z.-]+)?`)

// ExtractVersion returns the first token in output that parses as a version,
// e.g. "0.4.1" from "ruff 0.4.1" or "2.43.0" from "git version 2.43.0".
func ExtractVersion(output string) (string, bool) {
	for _, tok := range versionToken.FindAllString(output, -1) {
		if _, err := parseSemver(tok); err == nil {
			return strings.TrimPrefix(tok, "v"), true
		}
	}
	return "", false
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(version, "v")
	return semver.NewVersion(version)
}
