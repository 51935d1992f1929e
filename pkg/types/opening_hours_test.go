package types

import (
	"testing"
	"time"
)

func TestDefaultOpeningHours(t *testing.T) {
	hours := DefaultOpeningHours()
	if len(hours) != 7 {
		t.Fatalf("expected 7 days, got %d", len(hours))
	}

	sunday, ok := hours.For(time.Sunday)
	if !ok || sunday.Open {
		t.Fatalf("expected sunday closed, got %+v", sunday)
	}

	for day := time.Monday; day <= time.Saturday; day++ {
		got, ok := hours.For(day)
		if !ok {
			t.Fatalf("missing schedule for %s", day)
		}
		if !got.Open || got.Opens != "08:00" || got.Closes != "22:00" {
			t.Fatalf("unexpected schedule for %s: %+v", day, got)
		}
	}
}

func TestOpeningHoursValueScan(t *testing.T) {
	value, err := DefaultOpeningHours().Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var scanned OpeningHours
	if err := scanned.Scan([]byte(value.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got, _ := scanned.For(time.Wednesday); got.Opens != "08:00" {
		t.Fatalf("unexpected wednesday after scan: %+v", got)
	}

	var empty OpeningHours
	v, err := empty.Value()
	if err != nil || v != "{}" {
		t.Fatalf("expected empty json object, got %v (%v)", v, err)
	}

	if err := scanned.Scan(42); err == nil {
		t.Fatal("expected error for unsupported scan type")
	}
}
