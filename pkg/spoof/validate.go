package spoof

import (
	"regexp"
	"strings"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
)

var (
	fingerprintRe = regexp.MustCompile(`^[\w.\-]+/[\w.\-]+/[\w.\-]+:[\w.]+/[\w.\-]+/[\w.\-]+:\w+/[\w\-]+$`)
	buildIDRe     = regexp.MustCompile(`^[A-Z0-9]+\.\d{6}\.\d{3}$`)
	serialRe      = regexp.MustCompile(`^[A-Za-z0-9]{6,20}$`)
	incrementalRe = regexp.MustCompile(`^[A-Za-z0-9.\-]{1,40}$`)
	numericRe     = regexp.MustCompile(`^\d+$`)
	nameRe        = regexp.MustCompile(`^[\x20-\x7e]{1,64}$`)
)

// ValidateProp checks a generated value against the format expected for
// its property before it is written to the device.
func ValidateProp(name, value string) error {
	var re *regexp.Regexp

	switch {
	case strings.HasSuffix(name, "build.fingerprint"):
		re = fingerprintRe
	case name == "ro.build.id" || name == "ro.build.display.id":
		re = buildIDRe
	case name == "ro.serialno" || name == "ro.boot.serialno":
		re = serialRe
	case name == "ro.build.version.incremental":
		re = incrementalRe
	case name == "ro.build.version.sdk" || name == "ro.build.date.utc":
		re = numericRe
	case strings.HasPrefix(name, "ro.product."):
		re = nameRe
	default:
		re = nameRe
	}

	if !re.MatchString(value) {
		return apkerrors.NewValidationError("PROP_VALUE_INVALID",
			"generated value does not match the expected format for "+name+": "+value)
	}

	return nil
}

// ValidateIdentity checks every property of an identity.
func ValidateIdentity(id *Identity) error {
	for name, value := range id.Props {
		if err := ValidateProp(name, value); err != nil {
			return err
		}
	}
	return nil
}
