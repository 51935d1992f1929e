package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
)

type sampleBody struct {
	LicenseKey string `json:"license_key" validate:"required"`
	GymID      string `json:"gym_id" validate:"omitempty,max=64"`
}

func decode(t *testing.T, body string) (sampleBody, error) {
	t.Helper()
	return decodeAs(t, "application/json", body)
}

func decodeAs(t *testing.T, contentType, body string) (sampleBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	var dest sampleBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	return dest, err
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"license_key":"a.b.c","gym_id":"gym-1"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LicenseKey != "a.b.c" || got.GymID != "gym-1" {
		t.Fatalf("unexpected decode result %+v", got)
	}
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"malformed":      `{"license_key":`,
		"wrong type":     `{"license_key":42}`,
		"unknown field":  `{"license_key":"a","extra":1}`,
		"missing field":  `{"gym_id":"gym-1"}`,
		"trailing value": `{"license_key":"a"}{"license_key":"b"}`,
		"oversized id":   `{"license_key":"a","gym_id":"` + strings.Repeat("x", 65) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %s", pkgerrors.CodeOf(err))
			}
		})
	}
}

func TestDecodeJSONBodyNamesFieldsByJSONTag(t *testing.T) {
	_, err := decode(t, `{"gym_id":"gym-1"}`)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["license_key"] != "is required" {
		t.Fatalf("unexpected details %v", typed.Details())
	}
}

func TestDecodeJSONBodyContentType(t *testing.T) {
	body := `{"license_key":"a.b.c"}`
	if _, err := decodeAs(t, "", body); err != nil {
		t.Fatalf("missing content type should be accepted: %v", err)
	}
	if _, err := decodeAs(t, "application/json; charset=utf-8", body); err != nil {
		t.Fatalf("charset parameter should be accepted: %v", err)
	}
	_, err := decodeAs(t, "text/plain", body)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "content type must be application/json" {
		t.Fatalf("expected content type rejection, got %v", err)
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	body := `{"license_key":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	_, err := decode(t, body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "request body too large" {
		t.Fatalf("expected too large error, got %v", err)
	}
	if typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", typed.Code())
	}
}
