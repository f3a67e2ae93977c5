package agent

import "fmt"

// MalformedResponseError indicates no JSON object could be extracted from the
// model output.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("agent: malformed model response: %s", e.Reason)
}

// InvalidDecisionError indicates the model returned well-formed JSON whose
// decision is outside the allowed action vocabulary.
type InvalidDecisionError struct {
	Decision string
}

func (e *InvalidDecisionError) Error() string {
	return fmt.Sprintf("agent: decision %q not in allowed action list", e.Decision)
}
