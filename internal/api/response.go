package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/metrics"
)

// CodeNoParticipants is returned when a player has nothing to aggregate.
const CodeNoParticipants = "NO_PARTICIPANTS"

// envelope is the body of every response.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError is an error with its HTTP rendering decided.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func badRequest(msg string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: domain.KindInvalidInput.Code(), Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ok sends a 200 response wrapping data.
func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// fail maps err to a status and code and sends the error body.
func fail(w http.ResponseWriter, err error) {
	e := toAPIError(err)
	writeJSON(w, e.Status, envelope{Error: &errorBody{Code: e.Code, Message: e.Message}})
}

func toAPIError(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, metrics.ErrNoParticipants) {
		return &apiError{Status: http.StatusNotFound, Code: CodeNoParticipants, Message: err.Error()}
	}

	kind := domain.KindOf(err)
	e := &apiError{Status: statusFor(kind), Code: kind.Code(), Message: err.Error()}
	if kind == domain.KindInternal {
		e.Message = "internal error"
	}
	return e
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidMatchData, domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindInvalidUpstreamPayload:
		return http.StatusBadGateway
	case domain.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindDuplicateWrite:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
