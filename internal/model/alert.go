package model

// AlertSeverity orders alerts by urgency.
type AlertSeverity string

// Severities.
const (
	SeverityInfo    AlertSeverity = "info"
	SeverityWarning AlertSeverity = "warning"
)

// AlertKind identifies which rule produced an alert so sinks can key
// deduplication or formatting on it.
type AlertKind string

// Alert kinds.
const (
	AlertOverallApproaching AlertKind = "overall_approaching"
	AlertOverallExceeded    AlertKind = "overall_exceeded"
	AlertCategoryNear       AlertKind = "category_near"
	AlertCategoryExceeded   AlertKind = "category_exceeded"
	AlertOverAllocated      AlertKind = "over_allocated"
)

// Alert is an ephemeral threshold-crossing notice. This core never persists
// alerts; delivery belongs to an external notification sink.
type Alert struct {
	Kind     AlertKind     `json:"kind"`
	Severity AlertSeverity `json:"severity"`
	Category string        `json:"category,omitempty"`
	Message  string        `json:"message"`
}
