package shared

import (
	"errors"
	"net/http"

	jsonResponse "movido/internal/transport/http/json"
	dErrors "movido/pkg/domain-errors"
)

// WriteError centralizes domain error translation to HTTP responses.
// The error body carries the human-readable message under "error" because the
// browser checkout client reads data.error and shows it verbatim.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		if message == "" {
			message = string(domainErr.Code)
		}
		jsonResponse.WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), map[string]string{
			"error": message,
		})
		return
	}

	// Fallback for unexpected errors
	jsonResponse.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeAuthFailed, dErrors.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeConfiguration, dErrors.CodeUpstream, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
