package llm

import "fmt"

// BackendError reports a failed inference call. Detail carries the backend's
// diagnostic output (stderr for process backends, API error text for HTTP
// backends).
type BackendError struct {
	Backend string
	Detail  string
	Err     error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("llm: backend %s failed", e.Backend)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }
