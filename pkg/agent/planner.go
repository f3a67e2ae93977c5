package agent

import (
	"context"

	"cropagent/pkg/llm"
)

// Planner generates a step-by-step treatment plan for a gated decision.
type Planner struct {
	runner         *llm.Runner
	allowedActions []string
	logger         llm.Logger
}

// NewPlanner wires a planner to the shared prompt runner.
func NewPlanner(runner *llm.Runner, allowedPlanActions []string, logger llm.Logger) *Planner {
	return &Planner{
		runner:         runner,
		allowedActions: allowedPlanActions,
		logger:         logger,
	}
}

// Prompt renders the plan prompt for a gated decision. Callers that need the
// prompt text again, for digests or journaling, reuse the returned string
// rather than rendering twice.
func (p *Planner) Prompt(c CaseContext, decision Decision) string {
	return PlanPrompt(c, decision, p.allowedActions)
}

// BuildPlan sends a rendered plan prompt and parses the response. A response
// that cannot be parsed degrades to an empty plan with an explanatory note;
// only backend failures surface as errors.
func (p *Planner) BuildPlan(ctx context.Context, c CaseContext, decision Decision, prompt string) ([]PlanStep, string, error) {
	raw, err := p.runner.Run(ctx, prompt)
	if err != nil {
		return nil, "", err
	}

	steps, err := ParsePlan(raw)
	if err != nil {
		p.logger.Warn(ctx, "plan parse failed, returning empty plan", llm.Fields{
			"crop":     c.Crop,
			"decision": decision.Decision,
			"error":    err.Error(),
		})
		return []PlanStep{}, planFallbackNote, nil
	}
	if steps == nil {
		steps = []PlanStep{}
	}
	return steps, "", nil
}
