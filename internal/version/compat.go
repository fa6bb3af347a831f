package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	dverrors "github.com/conneroisu/mdbook-dice/internal/errors"
)

// HostVersion is the mdBook release the preprocessor was built against.
// Hosts are accepted when they satisfy the caret requirement ^HostVersion.
var HostVersion = "0.4.40"

// Compatibility is the outcome of comparing a host version with a
// requirement. It is advisory: callers log a mismatch and carry on.
type Compatibility struct {
	Required   string
	Actual     string
	Compatible bool
}

// Warning returns the message logged when the host does not match.
func (c Compatibility) Warning() string {
	return fmt.Sprintf(
		"The mdbook-dice preprocessor was built against version %s of mdbook, but we're being called from version %s",
		c.Required, c.Actual,
	)
}

// CheckHostCompatibility compares the version mdBook reports with HostVersion.
func CheckHostCompatibility(actual string) (Compatibility, error) {
	return CheckCompatibility(HostVersion, actual)
}

// CheckCompatibility reports whether actual satisfies the caret requirement
// ^required. Either string failing to parse is an error.
func CheckCompatibility(required, actual string) (Compatibility, error) {
	c := Compatibility{Required: required, Actual: actual}

	req, err := ParseVersion(required)
	if err != nil {
		return c, dverrors.NewVersionError("invalid required mdbook version", err).
			WithContext("required", required)
	}
	act, err := ParseVersion(actual)
	if err != nil {
		return c, dverrors.NewVersionError("invalid mdbook version reported by the host", err).
			WithContext("actual", actual)
	}

	c.Compatible = caretMatches(req, act)
	return c, nil
}

// ParseVersion validates a strict MAJOR.MINOR.PATCH[-pre][+build] version
// and returns it in the "v"-prefixed form the semver package uses.
func ParseVersion(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty version string")
	}
	if strings.HasPrefix(s, "v") {
		return "", fmt.Errorf("unexpected prefix in version %q", s)
	}

	core := s
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	if strings.Count(core, ".") != 2 {
		return "", fmt.Errorf("version %q must have major, minor and patch components", s)
	}

	v := "v" + s
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid semantic version %q", s)
	}
	return v, nil
}

// caretMatches implements ^req: not older than req, same major, same minor
// for 0.x and same patch for 0.0.x. Pre-releases only match a requirement
// that is itself a pre-release of the same release.
func caretMatches(req, act string) bool {
	if semver.Compare(act, req) < 0 {
		return false
	}

	if semver.Major(act) != semver.Major(req) {
		return false
	}
	if semver.Major(req) == "v0" && semver.MajorMinor(act) != semver.MajorMinor(req) {
		return false
	}
	if semver.MajorMinor(req) == "v0.0" && release(act) != release(req) {
		return false
	}

	if semver.Prerelease(act) != "" {
		return semver.Prerelease(req) != "" && release(act) == release(req)
	}
	return true
}

// release strips pre-release and build metadata.
func release(v string) string {
	canonical := semver.Canonical(v)
	return strings.TrimSuffix(canonical, semver.Prerelease(canonical))
}
