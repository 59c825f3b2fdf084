package sheets

import "fmt"

// UpstreamError reports a failed spreadsheet API call. The HTTP layer maps it
// to a 500 response with the upstream message passed through.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sheets API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sheets API error (HTTP %d)", e.StatusCode)
}
