package pipeline

// OutcomeKind tags a CreationOutcome.
type OutcomeKind int

const (
	// OutcomeCreated means one event was created on the calendar.
	OutcomeCreated OutcomeKind = iota
	// OutcomeDuplicate means a matching event already existed; nothing was
	// created. Expected, not an error.
	OutcomeDuplicate
	// OutcomeFailed means creation did not happen; the user gets the manual
	// fallback card.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CreationOutcome is the tagged result of an event-creation attempt.
type CreationOutcome struct {
	Kind       OutcomeKind
	CalendarID string // set for Created
	EventID    string // set for Created and Duplicate
	Reason     string // set for Failed
}
