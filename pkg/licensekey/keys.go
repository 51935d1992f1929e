package licensekey

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
)

// DefaultKeyBits is the RSA modulus size used by GenerateKeyPair when none is given.
const DefaultKeyBits = 2048

var (
	// ErrKeyNotConfigured is returned when a required key value is empty.
	ErrKeyNotConfigured = errors.New("license key not configured")
	// ErrInvalidKey is returned when the configured value is not a usable RSA key.
	ErrInvalidKey = errors.New("invalid license key material")
)

const pemPrefix = "-----BEGIN"

// NormalizePEM turns a key stored as a single configuration line back into
// multi-line PEM. Literal "\n" and "\r\n" escapes become newlines and a pair of
// wrapping quotes is removed. Already well-formed PEM passes through unchanged.
func NormalizePEM(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	s = strings.ReplaceAll(s, `\r\n`, "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}

// LoadPrivateKey reads the signing key from the license configuration.
func LoadPrivateKey(cfg config.LicenseConfig) (*rsa.PrivateKey, error) {
	key, err := ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "load license private key")
	}
	return key, nil
}

// LoadPublicKey reads the verification key from the license configuration.
func LoadPublicKey(cfg config.LicenseConfig) (*rsa.PublicKey, error) {
	key, err := ParsePublicKey(cfg.PublicKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "load license public key")
	}
	return key, nil
}

// ParsePrivateKey parses a PKCS#1 or PKCS#8 RSA private key. value may be
// inline PEM or a path to a PEM file.
func ParsePrivateKey(value string) (*rsa.PrivateKey, error) {
	block, err := decodeBlock(value)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected RSA private key, got %T", ErrInvalidKey, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported pem block %q", ErrInvalidKey, block.Type)
	}
}

// ParsePublicKey parses a PKIX or PKCS#1 RSA public key. value may be inline
// PEM or a path to a PEM file.
func ParsePublicKey(value string) (*rsa.PublicKey, error) {
	block, err := decodeBlock(value)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected RSA public key, got %T", ErrInvalidKey, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported pem block %q", ErrInvalidKey, block.Type)
	}
}

// GenerateKeyPair creates a new RSA key pair and returns it PEM-encoded
// (PKCS#8 private key, PKIX public key).
func GenerateKeyPair(bits int) (privatePEM, publicPEM []byte, err error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}

	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	return privatePEM, publicPEM, nil
}

// EscapePEM renders PEM as a single line with literal "\n" escapes, the form
// expected in environment files.
func EscapePEM(pemBytes []byte) string {
	return strings.ReplaceAll(strings.TrimSpace(string(pemBytes)), "\n", `\n`)
}

func decodeBlock(value string) (*pem.Block, error) {
	raw, err := loadPEM(value)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no pem block found", ErrInvalidKey)
	}
	return block, nil
}

func loadPEM(value string) ([]byte, error) {
	s := NormalizePEM(value)
	if s == "" {
		return nil, ErrKeyNotConfigured
	}
	if strings.HasPrefix(s, pemPrefix) {
		return []byte(s), nil
	}

	contents, err := os.ReadFile(s)
	if err != nil {
		return nil, fmt.Errorf("%w: read key file: %v", ErrInvalidKey, err)
	}
	contents = bytes.TrimSpace(contents)
	if len(contents) == 0 {
		return nil, ErrKeyNotConfigured
	}
	return []byte(NormalizePEM(string(contents))), nil
}
