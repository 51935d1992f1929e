package licensekey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned by Decode when the token cannot be parsed at all.
var ErrMalformed = errors.New("malformed license token")

// Decode parses the payload WITHOUT verifying the signature. Use it only to
// discover identity before a verified Validate call, or for inspection.
func Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}
