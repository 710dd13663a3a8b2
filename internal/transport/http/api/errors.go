package api

import (
	"net/http"

	"workforce/internal/domain/apperr"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FailError writes err as an envelope. Store failures are reported with
// code and fallback so internal messages never leak.
func FailError(w http.ResponseWriter, err error, code, fallback, requestID string) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		Fail(w, http.StatusInternalServerError, code, fallback, requestID)
		return
	}
	Fail(w, StatusFor(kind), string(kind), apperr.Message(err, fallback), requestID)
}
