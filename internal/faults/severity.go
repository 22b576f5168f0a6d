package faults

// Severity drives both the log level and the default user-facing message of
// a handled error.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var defaultMessages = map[Severity]string{
	SeverityLow:      "A minor issue occurred. Please try again.",
	SeverityMedium:   "An error occurred while processing your request.",
	SeverityHigh:     "A serious error occurred. Please contact support.",
	SeverityCritical: "A critical system error occurred. Please contact support immediately.",
}

// DefaultMessage returns the fixed user-facing message for a severity level.
func DefaultMessage(severity Severity) string {
	if message, ok := defaultMessages[severity]; ok {
		return message
	}
	return "An unexpected error occurred."
}
