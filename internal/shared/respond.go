package shared

import (
	"encoding/json"
	"errors"
	"net/http"
)

// RespondJSON writes data as a JSON response body.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// RespondError maps a domain error to its HTTP representation. Unknown
// errors surface as PERSISTENCE_FAILURE without leaking internals.
func RespondError(w http.ResponseWriter, err error) {
	var de *Error
	if !errors.As(err, &de) {
		RespondJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Kind:    KindPersistenceFailure,
			Message: "operation failed, no changes were saved",
		}})
		return
	}
	RespondJSON(w, statusForKind(de.Kind), errorBody{Error: errorDetail{
		Kind:    de.Kind,
		Message: de.Message,
		Meta:    de.Meta,
	}})
}

func statusForKind(kind ErrorKind) int {
	switch kind {
	case KindStockNotFound, KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindExpiredStock, KindCreditLimitExceeded, KindAlreadyCancelled, KindDuplicateSubmission:
		return http.StatusConflict
	case KindCustomerRequired, KindPatientInfoRequired, KindValidation:
		return http.StatusUnprocessableEntity
	case KindSequenceCorrupted, KindPersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return NewErrorf(KindValidation, "invalid request body: %v", err)
	}
	return nil
}
