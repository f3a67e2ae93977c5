package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fenceRe captures the first JSON object inside a markdown code fence. The
// non-greedy body stops at the first closing brace before the fence ends.
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ActionSet is the allowed decision vocabulary.
type ActionSet map[string]struct{}

// NewActionSet builds a set from a list of action names.
func NewActionSet(actions []string) ActionSet {
	set := make(ActionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Contains reports whether action is in the set. Matching is exact.
func (s ActionSet) Contains(action string) bool {
	_, ok := s[action]
	return ok
}

// ExtractJSON pulls a single JSON object out of raw model output. A fenced
// block wins over the brace-span fallback; whichever strategy matches gets
// exactly one parse attempt.
func ExtractJSON(response string) (string, error) {
	if m := fenceRe.FindStringSubmatch(response); m != nil {
		candidate := m[1]
		if !json.Valid([]byte(candidate)) {
			return "", &MalformedResponseError{Reason: "fenced block is not valid JSON"}
		}
		return candidate, nil
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", &MalformedResponseError{Reason: "no JSON object found in response"}
	}

	candidate := response[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", &MalformedResponseError{Reason: "brace span is not valid JSON"}
	}
	return candidate, nil
}

// ParseDecision extracts a decision object from raw model output and checks
// it against the allowed vocabulary.
func ParseDecision(response string, allowed ActionSet) (RawDecision, error) {
	obj, err := ExtractJSON(response)
	if err != nil {
		return RawDecision{}, err
	}

	var decision RawDecision
	if err := json.Unmarshal([]byte(obj), &decision); err != nil {
		return RawDecision{}, &MalformedResponseError{Reason: err.Error()}
	}

	if !allowed.Contains(decision.Decision) {
		return RawDecision{}, &InvalidDecisionError{Decision: decision.Decision}
	}
	return decision, nil
}

// ParsePlan extracts a treatment plan from raw model output. Step actions are
// constrained at the prompt level and deliberately not re-validated here, so
// a plan with unexpected casing is kept rather than discarded.
func ParsePlan(response string) ([]PlanStep, error) {
	obj, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var plan rawPlan
	if err := json.Unmarshal([]byte(obj), &plan); err != nil {
		return nil, &MalformedResponseError{Reason: err.Error()}
	}
	return plan.Plan, nil
}
