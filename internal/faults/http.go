package faults

import stdhttp "net/http"

// HTTPStatus maps an error classification to its fixed HTTP status code.
// This is a static table, not derived logic.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return stdhttp.StatusBadRequest
	case KindAuthentication:
		return stdhttp.StatusUnauthorized
	case KindAuthorization:
		return stdhttp.StatusForbidden
	case KindBusinessLogic:
		return stdhttp.StatusUnprocessableEntity
	case KindSecurity:
		return stdhttp.StatusBadRequest
	default:
		return stdhttp.StatusInternalServerError
	}
}

// SeverityFor maps an error classification to its fixed handling severity.
func SeverityFor(kind Kind) Severity {
	switch kind {
	case KindValidation, KindAuthentication, KindAuthorization, KindBusinessLogic:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}
