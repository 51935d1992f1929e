package licenses

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
)

var (
	ErrNotOwner          = errors.New("owner does not own gym")
	ErrNoExpiryAvailable = errors.New("no expiry supplied and no active subscription")
	ErrInvalidExpiry     = errors.New("license expiry must be after issuance")
	ErrMalformedLicense  = errors.New("license key could not be decoded")
	ErrGymMismatch       = errors.New("license key belongs to a different gym")
)

// LicenseInvalidError reports a license that decoded but failed validation.
// It unwraps to the matching licensekey sentinel.
type LicenseInvalidError struct {
	Reason enums.LicenseValidation
}

func (e *LicenseInvalidError) Error() string {
	return fmt.Sprintf("license rejected: %s", e.Reason)
}

func (e *LicenseInvalidError) Unwrap() error {
	return licensekey.Result{Status: e.Reason}.Err()
}

func rejected(reason enums.LicenseValidation) error {
	return pkgerrors.Wrap(pkgerrors.CodeLicenseRejected, &LicenseInvalidError{Reason: reason}, "license rejected").
		WithDetails(map[string]string{"reason": reason.String()})
}

// dependency keeps typed errors intact and wraps anything else as a store failure.
func dependency(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
