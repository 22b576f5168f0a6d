package faults

import (
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errorIDPattern = regexp.MustCompile(`^error_\d{8}_[0-9a-f]{8}$`)

func newTestManager(t *testing.T) (*Manager, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	manager, err := NewManager(logger, nil)
	require.NoError(t, err)

	return manager, hook
}

func TestHandleUsesCallerMessage(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)

	err := New(KindValidation, "invalid email format")
	record := manager.Handle(err, SeverityMedium, logrus.Fields{"field": "email"}, "Please enter a valid email address")

	assert.Equal(t, "Please enter a valid email address", record.Message)
	assert.Equal(t, "medium", record.Severity)
	assert.Equal(t, "ValidationError", record.Type)
	assert.Regexp(t, errorIDPattern, record.ErrorID)
	assert.NotEmpty(t, record.Timestamp)
}

func TestHandleFallsBackToSeverityDefaults(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)

	cases := []struct {
		severity Severity
		message  string
	}{
		{SeverityLow, "A minor issue occurred. Please try again."},
		{SeverityMedium, "An error occurred while processing your request."},
		{SeverityHigh, "A serious error occurred. Please contact support."},
		{SeverityCritical, "A critical system error occurred. Please contact support immediately."},
	}

	for _, tc := range cases {
		record := manager.Handle(eris.New("boom"), tc.severity, nil, "")
		assert.Equal(t, tc.message, record.Message)
		assert.Equal(t, string(tc.severity), record.Severity)
	}
}

func TestHandleGeneratesFreshErrorIDPerCall(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)

	err := New(KindBusinessLogic, "article not found")

	first := manager.Handle(err, SeverityMedium, nil, "")
	second := manager.Handle(err, SeverityMedium, nil, "")

	assert.Regexp(t, errorIDPattern, first.ErrorID)
	assert.Regexp(t, errorIDPattern, second.ErrorID)
	assert.NotEqual(t, first.ErrorID, second.ErrorID)
}

func TestHandleTimestampFormat(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)
	manager.now = func() time.Time {
		return time.Date(2023, 12, 25, 10, 30, 45, 987654321, time.UTC)
	}

	record := manager.Handle(eris.New("boom"), SeverityLow, nil, "")

	assert.Equal(t, "2023-12-25T10:30:45Z", record.Timestamp)
	assert.Regexp(t, `^error_20231225_[0-9a-f]{8}$`, record.ErrorID)
}

func TestHandleUnclassifiedErrorType(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)

	record := manager.Handle(eris.New("database connection failed"), SeverityCritical, nil, "")

	assert.Equal(t, "InternalError", record.Type)
	assert.Equal(t, "A critical system error occurred. Please contact support immediately.", record.Message)
}

func TestHandleLogsAtSeverityLevel(t *testing.T) {
	t.Parallel()

	manager, hook := newTestManager(t)

	cases := []struct {
		severity Severity
		level    logrus.Level
	}{
		{SeverityCritical, logrus.ErrorLevel},
		{SeverityHigh, logrus.ErrorLevel},
		{SeverityMedium, logrus.WarnLevel},
		{SeverityLow, logrus.InfoLevel},
	}

	for _, tc := range cases {
		hook.Reset()
		manager.Handle(New(KindDatabase, "storage failure"), tc.severity, logrus.Fields{"operation": "create"}, "")

		require.Len(t, hook.Entries, 1)
		entry := hook.LastEntry()
		assert.Equal(t, tc.level, entry.Level)
		assert.Equal(t, "DatabaseError", entry.Data["error_type"])
		assert.Equal(t, "create", entry.Data["operation"])
		assert.Regexp(t, errorIDPattern, entry.Data["error_id"])
	}
}

func TestHandleHighSeverityIncludesTrace(t *testing.T) {
	t.Parallel()

	manager, hook := newTestManager(t)

	manager.Handle(Wrap(KindSecurity, eris.New("rejected"), "schema validation failed"), SeverityHigh, nil, "")

	require.Len(t, hook.Entries, 1)
	assert.Contains(t, hook.LastEntry().Data, "trace")
}

func TestContextIsLoggedButNeverReturned(t *testing.T) {
	t.Parallel()

	manager, hook := newTestManager(t)

	err := New(KindValidation, "bad input").WithDetails(map[string]any{"constraint": "unique"})
	record := manager.Handle(err, SeverityMedium, logrus.Fields{"user_id": 42}, "")

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, 42, hook.LastEntry().Data["user_id"])
	assert.Contains(t, hook.LastEntry().Data, "details")

	assert.NotContains(t, record.Message, "unique")
	assert.NotContains(t, record.Message, "42")
}

func TestNewManagerRequiresLogger(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil, nil)
	assert.Error(t, err)
}

func TestHTTPStatusTable(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		KindValidation:     400,
		KindAuthentication: 401,
		KindAuthorization:  403,
		KindBusinessLogic:  422,
		KindSecurity:       400,
		KindDatabase:       500,
		KindUnknown:        500,
	}

	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), "kind %s", kind)
	}

	assert.Equal(t, SeverityMedium, SeverityFor(KindValidation))
	assert.Equal(t, SeverityMedium, SeverityFor(KindAuthorization))
	assert.Equal(t, SeverityHigh, SeverityFor(KindSecurity))
	assert.Equal(t, SeverityHigh, SeverityFor(KindDatabase))
	assert.Equal(t, SeverityHigh, SeverityFor(KindUnknown))
}

func TestKindOfWalksWrappedChains(t *testing.T) {
	t.Parallel()

	inner := New(KindAuthentication, "invalid email or password")
	wrapped := eris.Wrap(inner, "authenticating user")

	assert.Equal(t, KindAuthentication, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindAuthentication))
	assert.Equal(t, KindUnknown, KindOf(io.EOF))
}

func TestUserMessagePropagation(t *testing.T) {
	t.Parallel()

	err := New(KindValidation, "title missing").WithUserMessage("Registration failed. Please check your input.")
	wrapped := eris.Wrap(err, "registering user")

	assert.Equal(t, "Registration failed. Please check your input.", UserMessage(wrapped))
	assert.Equal(t, "", UserMessage(io.EOF))
}
