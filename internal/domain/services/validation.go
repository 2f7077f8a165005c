package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// Validation policy names accepted in descriptors and flags
const (
	PolicyStrict     = "strict"
	PolicyPermissive = "permissive"
)

// Violation is a single rejected descriptor field
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationPolicy decides which descriptors may proceed to patching
type ValidationPolicy interface {
	Name() string
	Validate(d *entities.Descriptor) []Violation
}

// PermissivePolicy accepts everything; malformed values surface downstream
type PermissivePolicy struct{}

// Name returns the policy name
func (PermissivePolicy) Name() string { return PolicyPermissive }

// Validate never reports violations
func (PermissivePolicy) Validate(_ *entities.Descriptor) []Violation { return nil }

// StrictPolicy checks identity, edition, build numbers and range ordering
type StrictPolicy struct{}

// Name returns the policy name
func (StrictPolicy) Name() string { return PolicyStrict }

var languageLevelPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Validate reports every violation found in d
func (StrictPolicy) Validate(d *entities.Descriptor) []Violation {
	var out []Violation
	add := func(field, format string, args ...interface{}) {
		out = append(out, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(d.Identity.Group) == "" {
		add("group", "must not be empty")
	}
	if strings.TrimSpace(d.Identity.Version) == "" {
		add("version", "must not be empty")
	}
	switch d.Platform.Edition {
	case entities.EditionCommunity, entities.EditionUltimate:
	default:
		add("platform.type", "unknown edition %q (want IC or IU)", d.Platform.Edition)
	}
	for i, id := range d.Platform.RequiredPlugins {
		if strings.TrimSpace(id) == "" {
			add(fmt.Sprintf("platform.plugins[%d]", i), "must not be empty")
		}
	}
	if !languageLevelPattern.MatchString(d.LanguageLevel) {
		add("java", "invalid language level %q", d.LanguageLevel)
	}

	since, sinceErr := ParseBuildNumber(d.Compatibility.SinceBuild, false)
	if sinceErr != nil {
		add("compatibility.since_build", "%v", sinceErr)
	}
	if d.Compatibility.UntilBuild == "" {
		return out
	}
	until, untilErr := ParseBuildNumber(d.Compatibility.UntilBuild, true)
	if untilErr != nil {
		add("compatibility.until_build", "%v", untilErr)
	}
	if sinceErr == nil && untilErr == nil && CompareBuildNumbers(since, until) > 0 {
		add("compatibility", "until_build %s is below since_build %s",
			d.Compatibility.UntilBuild, d.Compatibility.SinceBuild)
	}
	return out
}

// PolicyByName resolves a policy name; empty means permissive
func PolicyByName(name string) (ValidationPolicy, error) {
	switch name {
	case "", PolicyPermissive:
		return PermissivePolicy{}, nil
	case PolicyStrict:
		return StrictPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown validation policy %q", name)
	}
}

// BuildNumber is a parsed host build number. A wildcard component is
// represented by -1 and only appears last.
type BuildNumber []int

const wildcard = -1

// ParseBuildNumber parses "232", "232.8660.185" or, when allowWildcard is
// set, "241.*".
func ParseBuildNumber(s string, allowWildcard bool) (BuildNumber, error) {
	if s == "" {
		return nil, fmt.Errorf("build number must not be empty")
	}
	parts := strings.Split(s, ".")
	out := make(BuildNumber, 0, len(parts))
	for i, p := range parts {
		if p == "*" {
			if !allowWildcard || i != len(parts)-1 || i == 0 {
				return nil, fmt.Errorf("invalid wildcard in build number %q", s)
			}
			out = append(out, wildcard)
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid build number %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}

// CompareBuildNumbers returns -1, 0 or 1. Missing components count as zero
// and a wildcard matches anything from its position on.
func CompareBuildNumbers(a, b BuildNumber) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		x, y := component(a, i), component(b, i)
		if x == wildcard || y == wildcard {
			return 0
		}
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
	}
	return 0
}

func component(b BuildNumber, i int) int {
	if i < len(b) {
		return b[i]
	}
	return 0
}

// RangeIsConsistent reports whether since <= until. Unparseable or open
// ranges are reported consistent; StrictPolicy is where those get rejected.
func RangeIsConsistent(r entities.CompatibilityRange) bool {
	if r.UntilBuild == "" {
		return true
	}
	since, err := ParseBuildNumber(r.SinceBuild, false)
	if err != nil {
		return true
	}
	until, err := ParseBuildNumber(r.UntilBuild, true)
	if err != nil {
		return true
	}
	return CompareBuildNumbers(since, until) <= 0
}
