package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// CheckCompatibility checks whether the engine satisfies a strategy's engine_version requirement.
// Returns nil if compatible, a version error with details if not.
//
// The requirement is either a plain version or a semver constraint:
//   - Empty requirement: always compatible
//   - Engine "main" (development build): check skipped
//   - Plain version: major and minor must match, patch may differ
//   - Constraint (e.g. ">= 1.0, < 2"): the engine version must satisfy it
//
// Examples:
//   - Engine 1.2.1, requirement 1.2.0 -> OK (patch differs)
//   - Engine 1.3.0, requirement 1.2.0 -> ERROR (minor differs)
//   - Engine 2.0.0, requirement ^1.2 -> ERROR (constraint not satisfied)
func CheckCompatibility(engineVersion, requirement string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	requirement = strings.TrimSpace(requirement)

	if requirement == "" || engineVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	// plain version: same major.minor
	if requiredSemver, err := semver.NewVersion(strings.TrimPrefix(requirement, "v")); err == nil {
		if engineSemver.Major() != requiredSemver.Major() {
			return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: engine is %d.x.x but strategy requires %d.x.x",
				engineSemver.Major(), requiredSemver.Major())
		}

		if engineSemver.Minor() != requiredSemver.Minor() {
			return errors.Newf(errors.ErrCodeVersionMismatch, "minor version mismatch: engine is %d.%d.x but strategy requires %d.%d.x",
				engineSemver.Major(), engineSemver.Minor(),
				requiredSemver.Major(), requiredSemver.Minor())
		}

		return nil
	}

	constraint, err := semver.NewConstraint(requirement)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version requirement '%s'", requirement)
	}

	if ok, reasons := constraint.Validate(engineSemver); !ok {
		msgs := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			msgs = append(msgs, reason.Error())
		}

		return errors.Newf(errors.ErrCodeVersionMismatch, "engine version %s does not satisfy '%s': %s",
			engineSemver.String(), requirement, strings.Join(msgs, "; "))
	}

	return nil
}

// IsValidRequirement reports whether s parses as a version or a version constraint.
func IsValidRequirement(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}

	if _, err := semver.NewVersion(strings.TrimPrefix(s, "v")); err == nil {
		return true
	}

	_, err := semver.NewConstraint(s)

	return err == nil
}
