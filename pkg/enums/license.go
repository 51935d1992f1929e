package enums

import "fmt"

// LicenseValidation is the outcome of checking a license key.
type LicenseValidation string

const (
	LicenseValid            LicenseValidation = "valid"
	LicenseInvalidSignature LicenseValidation = "invalid-signature"
	LicenseExpired          LicenseValidation = "expired"
	LicenseInvalidType      LicenseValidation = "invalid-type"
	LicenseMissingData      LicenseValidation = "missing-data"
	LicenseGymMismatch      LicenseValidation = "gym-mismatch"
	LicenseClockTamper      LicenseValidation = "clock-tamper"
	LicenseIssuedInFuture   LicenseValidation = "issued-in-future"
)

var validLicenseValidations = []LicenseValidation{
	LicenseValid,
	LicenseInvalidSignature,
	LicenseExpired,
	LicenseInvalidType,
	LicenseMissingData,
	LicenseGymMismatch,
	LicenseClockTamper,
	LicenseIssuedInFuture,
}

// String implements fmt.Stringer.
func (v LicenseValidation) String() string {
	return string(v)
}

// IsValid reports whether the value is a known status. It does not mean the
// license itself passed validation; see LicenseValid for that.
func (v LicenseValidation) IsValid() bool {
	for _, candidate := range validLicenseValidations {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseLicenseValidation converts raw input into a LicenseValidation.
func ParseLicenseValidation(value string) (LicenseValidation, error) {
	for _, candidate := range validLicenseValidations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid license validation status %q", value)
}
