// Package installer orchestrates APK and bundle installation, including
// conflict resolution and OBB expansion file placement.
package installer

import (
	"regexp"
	"strings"
)

// Outcome is the terminal state of an installation attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeMissingSplit
	OutcomeInvalidAPK
	OutcomeInsufficientStorage
	OutcomeTimeout
	OutcomeGeneralFailure
	OutcomeUninstallFailed
	OutcomeUserSkippedUninstall
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeMissingSplit:
		return "MISSING_SPLIT"
	case OutcomeInvalidAPK:
		return "INVALID_APK"
	case OutcomeInsufficientStorage:
		return "INSUFFICIENT_STORAGE"
	case OutcomeTimeout:
		return "TIMEOUT"
	case OutcomeUninstallFailed:
		return "UNINSTALL_FAILED"
	case OutcomeUserSkippedUninstall:
		return "USER_SKIPPED_UNINSTALL"
	default:
		return "GENERAL_FAILURE"
	}
}

// ConflictCode names an existing-installation conflict that can be
// resolved by uninstalling the present package.
type ConflictCode string

const (
	ConflictAlreadyExists          ConflictCode = "ALREADY_EXISTS"
	ConflictUpdateIncompatible     ConflictCode = "UPDATE_INCOMPATIBLE"
	ConflictVersionDowngrade       ConflictCode = "VERSION_DOWNGRADE"
	ConflictSharedUserIncompatible ConflictCode = "SHARED_USER_INCOMPATIBLE"
)

var conflictMarkers = map[string]ConflictCode{
	"INSTALL_FAILED_ALREADY_EXISTS":           ConflictAlreadyExists,
	"INSTALL_FAILED_UPDATE_INCOMPATIBLE":      ConflictUpdateIncompatible,
	"INSTALL_FAILED_VERSION_DOWNGRADE":        ConflictVersionDowngrade,
	"INSTALL_FAILED_SHARED_USER_INCOMPATIBLE": ConflictSharedUserIncompatible,
}

var installFailedRe = regexp.MustCompile(`INSTALL_(?:FAILED|PARSE_FAILED)_[A-Z_]+`)

// classification is the parsed meaning of pm install output.
type classification struct {
	outcome  Outcome
	conflict ConflictCode // non-empty only for resolvable conflicts
	code     string       // raw INSTALL_FAILED_* token when present
}

// classifyOutput maps install command output to an outcome.
func classifyOutput(output string, timedOut bool) classification {
	if timedOut {
		return classification{outcome: OutcomeTimeout}
	}

	upper := strings.ToUpper(output)

	if strings.Contains(output, "Success") {
		return classification{outcome: OutcomeSuccess}
	}

	for marker, code := range conflictMarkers {
		if strings.Contains(upper, marker) {
			return classification{outcome: OutcomeGeneralFailure, conflict: code, code: marker}
		}
	}

	raw := installFailedRe.FindString(upper)

	switch {
	case strings.Contains(upper, "INSTALL_FAILED_MISSING_SPLIT"):
		return classification{outcome: OutcomeMissingSplit, code: raw}
	case strings.Contains(upper, "INSTALL_FAILED_INVALID_APK"),
		strings.Contains(upper, "INSTALL_PARSE_FAILED"):
		return classification{outcome: OutcomeInvalidAPK, code: raw}
	case strings.Contains(upper, "INSTALL_FAILED_INSUFFICIENT_STORAGE"):
		return classification{outcome: OutcomeInsufficientStorage, code: raw}
	}

	return classification{outcome: OutcomeGeneralFailure, code: raw}
}
