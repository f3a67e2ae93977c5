package agent

// FallbackAction is substituted whenever the model output cannot be trusted.
const FallbackAction = "NO_TREATMENT"

const (
	fallbackReason   = "Fallback: invalid or unsafe LLM output."
	blockedReason    = "Decision not in allowed action list."
	planFallbackNote = "Fallback: could not parse plan from LLM output."
)

// CaseContext describes a single crop case under evaluation. Temperature and
// Humidity are optional sensor readings; nil means not measured.
type CaseContext struct {
	Crop        string   `json:"crop"`
	Disease     string   `json:"disease"`
	Severity    string   `json:"severity"`
	Confidence  float64  `json:"confidence"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// RawDecision is the minimal decision payload extracted from model output,
// before any safety gating.
type RawDecision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Decision is a gated decision enriched with safety metadata.
type Decision struct {
	Decision             string `json:"decision"`
	Reason               string `json:"reason"`
	Safe                 bool   `json:"safe"`
	Override             bool   `json:"override"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
}

// PlanStep is one ordered step of a treatment plan.
type PlanStep struct {
	Step    int    `json:"step"`
	Action  string `json:"action"`
	Details string `json:"details"`
}

// Result is the full pipeline output: the gated decision plus the generated
// treatment plan. PlanNote is set when plan generation fell back to an empty
// plan.
type Result struct {
	Decision
	Plan     []PlanStep `json:"plan"`
	PlanNote string     `json:"plan_note,omitempty"`
}

type rawPlan struct {
	Plan []PlanStep `json:"plan"`
}
