package enums

import "fmt"

// SubscriptionStatus tracks the lifecycle of a gym's platform subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// subscriptionLapses marks the statuses that move to expired once end_date passes.
var subscriptionLapses = map[SubscriptionStatus]bool{
	SubscriptionStatusActive:   true,
	SubscriptionStatusPastDue:  true,
	SubscriptionStatusCanceled: false,
	SubscriptionStatusExpired:  false,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	_, ok := subscriptionLapses[s]
	return ok
}

// Lapses reports whether the status is still running and so can run out.
// Canceled and expired are terminal.
func (s SubscriptionStatus) Lapses() bool {
	return subscriptionLapses[s]
}

// LapsingSubscriptionStatuses lists the statuses for which Lapses is true, in a
// stable order for query arguments.
func LapsingSubscriptionStatuses() []SubscriptionStatus {
	return []SubscriptionStatus{SubscriptionStatusActive, SubscriptionStatusPastDue}
}

func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	s := SubscriptionStatus(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid subscription status %q", value)
	}
	return s, nil
}
