package core

import "time"

// Decision is the outcome of one refresh request
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Event is the single observability event emitted per request
type Event struct {
	ID       string    `json:"id"`
	Decision Decision  `json:"decision"`
	Subject  string    `json:"subject,omitempty"`
	Kind     string    `json:"kind,omitempty"`   // Bounded reason label, deny only
	Reason   string    `json:"reason,omitempty"` // Free-text cause, deny only
	Time     time.Time `json:"time"`
}

// Allow builds an allow event
func Allow(subject string, at time.Time) Event {
	return Event{Decision: DecisionAllow, Subject: subject, Time: at}
}

// Deny builds a deny event from the failure that caused it
func Deny(err error, at time.Time) Event {
	return Event{Decision: DecisionDeny, Kind: Reason(err), Reason: err.Error(), Time: at}
}
