package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

var errSentinel = stdErrors.New("owner does not own gym")

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(CodeForbidden, errSentinel, "owner mismatch")
	wrapped := fmt.Errorf("issue license: %w", err)

	if !stdErrors.Is(wrapped, errSentinel) {
		t.Fatalf("expected sentinel to be reachable through the chain")
	}
	if CodeOf(wrapped) != CodeForbidden {
		t.Fatalf("expected forbidden code, got %s", CodeOf(wrapped))
	}
	if CodeOf(errSentinel) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
}

func TestMetadataForLicenseRejected(t *testing.T) {
	meta := MetadataFor(CodeLicenseRejected)
	if meta.HTTPStatus != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", meta.HTTPStatus)
	}
	if !meta.DetailsAllowed {
		t.Fatalf("expected rejection reasons to be exposed")
	}
	if MetadataFor(Code("bogus")).HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should fall back to internal metadata")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeValidation, "bad expiry"))
	dump := Dump(err)

	if dump.Code != CodeValidation {
		t.Fatalf("expected validation code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
	if dump.Driver != nil {
		t.Fatalf("expected no driver detail, got %+v", dump.Driver)
	}
	if _, ok := dump.Fields()["db_driver"]; ok {
		t.Fatalf("driver fields should be omitted without driver detail")
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("expected empty dump for nil error")
	}
}

func TestDumpExtractsDriverDetail(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "gyms_pkey",
		TableName:      "gyms",
		Detail:         "Key (id)=(gym-1) already exists.",
	}
	dump := Dump(Wrap(CodeConflict, fmt.Errorf("insert gym: %w", pgErr), "gym exists"))

	if dump.Driver == nil || dump.Driver.Driver != "pgx" || dump.Driver.Code != "23505" {
		t.Fatalf("unexpected driver detail %+v", dump.Driver)
	}
	fields := dump.Fields()
	if fields["db_constraint"] != "gyms_pkey" || fields["db_table"] != "gyms" {
		t.Fatalf("unexpected fields %v", fields)
	}
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(s, "gym-1") {
			t.Fatalf("row values leaked into fields: %v", fields)
		}
	}
}

func TestDumpBoundsChain(t *testing.T) {
	err := stdErrors.New("root")
	for i := 0; i < 20; i++ {
		err = fmt.Errorf("layer %d: %w", i, err)
	}
	if got := len(Dump(err).Chain); got != maxChain {
		t.Fatalf("expected chain capped at %d, got %d", maxChain, got)
	}
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	if e.Code() != CodeInternal || e.Message() != "" || e.Error() != "" || e.Unwrap() != nil {
		t.Fatalf("nil receiver accessors should be safe")
	}
}

func TestPublicFiltersByCode(t *testing.T) {
	cases := []struct {
		name        string
		err         *Error
		wantStatus  int
		wantMessage string
		wantDetails bool
	}{
		{
			name:        "validation exposes message and details",
			err:         New(CodeValidation, "expires_at must be after issued_at").WithDetails(map[string]string{"field": "expires_at"}),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "expires_at must be after issued_at",
			wantDetails: true,
		},
		{
			name:        "dependency hides message but names the dependency",
			err:         Wrap(CodeDependency, stdErrors.New("dial tcp 10.0.0.5:5432"), "load gym").WithDetails(map[string]string{"dependency": "database"}),
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "dependency unavailable",
			wantDetails: true,
		},
		{
			name:        "forbidden without message falls back",
			err:         New(CodeForbidden, ""),
			wantStatus:  http.StatusForbidden,
			wantMessage: "access denied",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg, details := tc.err.Public()
			if status != tc.wantStatus || msg != tc.wantMessage {
				t.Fatalf("got %d %q, want %d %q", status, msg, tc.wantStatus, tc.wantMessage)
			}
			if (details != nil) != tc.wantDetails {
				t.Fatalf("details exposure mismatch: %v", details)
			}
		})
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection reset"), "load gym")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load gym: connection reset" {
		t.Fatalf("unexpected error string %q", got)
	}
}
