package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DayHours is the opening window for a single weekday. Times are HH:MM in the
// gym's local time.
type DayHours struct {
	Open   bool   `json:"open"`
	Opens  string `json:"opens,omitempty"`
	Closes string `json:"closes,omitempty"`
}

// OpeningHours maps lowercase weekday names to their schedule and is persisted as JSONB.
type OpeningHours map[string]DayHours

const (
	defaultOpens  = "08:00"
	defaultCloses = "22:00"
)

// DefaultOpeningHours is the schedule given to gyms seeded from a license:
// Monday through Saturday 08:00-22:00, Sunday closed.
func DefaultOpeningHours() OpeningHours {
	hours := make(OpeningHours, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		if day == time.Sunday {
			hours[dayKey(day)] = DayHours{Open: false}
			continue
		}
		hours[dayKey(day)] = DayHours{Open: true, Opens: defaultOpens, Closes: defaultCloses}
	}
	return hours
}

// For returns the schedule for the given weekday and whether one is defined.
func (h OpeningHours) For(day time.Weekday) (DayHours, bool) {
	hours, ok := h[dayKey(day)]
	return hours, ok
}

func dayKey(day time.Weekday) string {
	switch day {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}

// Value marshals the schedule into JSON for the database.
func (h OpeningHours) Value() (driver.Value, error) {
	if h == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSON into the schedule.
func (h *OpeningHours) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("opening hours: unsupported scan type %T", value)
	}

	result := make(OpeningHours)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*h = result
	return nil
}
