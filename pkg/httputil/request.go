package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes an error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// RequireNonEmpty validates that a field has a value, writing a 400 response
// when it is missing. Returns false when validation failed.
func RequireNonEmpty(w http.ResponseWriter, field, value string) bool {
	if value == "" {
		WriteBadRequest(w, fmt.Sprintf("missing required field: %s", field))
		return false
	}
	return true
}
