package faults

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Record is the standardized response produced for every handled error. Its
// JSON shape is wire-visible and must stay stable.
type Record struct {
	ErrorID   string `json:"error_id"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// Manager is the centralized error handling policy: it mints error ids, logs
// with severity-appropriate levels, forwards serious errors to Sentry, and
// produces the caller-facing record. One instance is shared per process and
// injected where needed.
type Manager struct {
	logger *logrus.Logger
	hub    *sentry.Hub

	now   func() time.Time
	token func() string
}

// NewManager constructs the error manager. The Sentry hub may be nil.
func NewManager(logger *logrus.Logger, hub *sentry.Hub) (*Manager, error) {
	if logger == nil {
		return nil, eris.New("logger is required")
	}

	return &Manager{
		logger: logger,
		hub:    hub,
		now:    time.Now,
		token:  func() string { return uuid.NewString()[:8] },
	}, nil
}

// Handle classifies the error, logs it with its context, and returns the
// record surfaced to the caller. A fresh error id is generated on every call,
// even for repeated identical errors. Context is logged but never included in
// the returned record.
func (m *Manager) Handle(err error, severity Severity, context logrus.Fields, userMessage string) Record {
	errorID := m.generateErrorID()

	m.logError(err, severity, errorID, context)

	message := userMessage
	if message == "" {
		message = DefaultMessage(severity)
	}

	return Record{
		ErrorID:   errorID,
		Message:   message,
		Severity:  string(severity),
		Timestamp: m.timestamp(),
		Type:      string(KindOf(err)),
	}
}

func (m *Manager) generateErrorID() string {
	return "error_" + m.now().UTC().Format("20060102") + "_" + m.token()
}

func (m *Manager) timestamp() string {
	return m.now().UTC().Format("2006-01-02T15:04:05") + "Z"
}

func (m *Manager) logError(err error, severity Severity, errorID string, context logrus.Fields) {
	fields := logrus.Fields{
		"error_id":      errorID,
		"error_type":    string(KindOf(err)),
		"error_message": err.Error(),
		"severity":      string(severity),
	}
	for key, value := range context {
		fields[key] = value
	}
	if details := DetailsOf(err); len(details) > 0 {
		fields["details"] = details
	}

	entry := m.logger.WithFields(fields)

	switch severity {
	case SeverityCritical, SeverityHigh:
		entry.WithField("trace", eris.ToString(err, true)).Errorf("Error %s: %v", errorID, err)
		if m.hub != nil {
			m.hub.CaptureException(err)
		}
	case SeverityMedium:
		entry.Warnf("Error %s: %v", errorID, err)
	default:
		entry.Infof("Error %s: %v", errorID, err)
	}
}
