package agent

import (
	"strconv"
	"strings"
)

const noSimilarCases = "No similar historical cases."

// DecisionPrompt builds the treatment decision prompt for a case and its
// retrieved memory. The output is deterministic for identical inputs.
func DecisionPrompt(c CaseContext, memory []string, allowedActions []string) string {
	cases := make([]string, 0, len(memory))
	for _, m := range memory {
		if m != "" {
			cases = append(cases, m)
		}
	}
	memoryBlock := strings.Join(cases, "\n")
	if memoryBlock == "" {
		memoryBlock = noSimilarCases
	}

	var b strings.Builder
	b.WriteString("You are an agricultural treatment decision agent.\n\n")
	b.WriteString("Your task is to select ONE appropriate treatment action\n")
	b.WriteString("based on the current case and past similar cases.\n\n")
	b.WriteString("Current Case:\n")
	b.WriteString("Crop: " + c.Crop + "\n")
	b.WriteString("Disease: " + c.Disease + "\n")
	b.WriteString("Severity: " + c.Severity + "\n")
	b.WriteString("Confidence: " + formatFloat(c.Confidence) + "\n")
	b.WriteString("Temperature: " + formatOptional(c.Temperature) + "\n")
	b.WriteString("Humidity: " + formatOptional(c.Humidity) + "\n\n")
	b.WriteString("Similar Past Cases:\n")
	b.WriteString(memoryBlock + "\n\n")
	b.WriteString("Allowed Actions:\n")
	b.WriteString(actionsBlock(allowedActions) + "\n\n")
	b.WriteString("IMPORTANT:\n")
	b.WriteString("- Choose exactly ONE action from the allowed list.\n")
	b.WriteString("- Do NOT invent new actions.\n")
	b.WriteString("- Respond ONLY in valid JSON, no extra text, no explanation outside JSON.\n")
	b.WriteString("- Always respond in English.\n\n")
	b.WriteString("JSON format:\n")
	b.WriteString("{\n")
	b.WriteString("  \"decision\": \"<ACTION>\",\n")
	b.WriteString("  \"reason\": \"<short explanation in English>\"\n")
	b.WriteString("}")
	return b.String()
}

// PlanPrompt builds the step-by-step treatment plan prompt for an approved
// decision.
func PlanPrompt(c CaseContext, decision Decision, allowedPlanActions []string) string {
	reason := decision.Reason
	if reason == "" {
		reason = "N/A"
	}

	var b strings.Builder
	b.WriteString("You are an agricultural treatment planner.\n\n")
	b.WriteString("Current Case:\n")
	b.WriteString("Crop: " + c.Crop + "\n")
	b.WriteString("Disease: " + c.Disease + "\n")
	b.WriteString("Severity: " + c.Severity + "\n\n")
	b.WriteString("Approved Decision: " + decision.Decision + "\n")
	b.WriteString("Reason: " + reason + "\n\n")
	b.WriteString("Create a short, logical step-by-step treatment plan using ONLY the allowed actions below.\n\n")
	b.WriteString("Allowed Plan Actions:\n")
	b.WriteString(actionsBlock(allowedPlanActions) + "\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("- Use ONLY the actions listed above.\n")
	b.WriteString("- Respond ONLY in valid JSON, no extra text before or after.\n")
	b.WriteString("- Always respond in English.\n")
	b.WriteString("- Keep the plan to 3-5 steps maximum.\n\n")
	b.WriteString("Output format:\n")
	b.WriteString("{\n")
	b.WriteString("  \"plan\": [\n")
	b.WriteString("    {\"step\": 1, \"action\": \"<ACTION>\", \"details\": \"<one sentence in English>\"},\n")
	b.WriteString("    {\"step\": 2, \"action\": \"<ACTION>\", \"details\": \"<one sentence in English>\"}\n")
	b.WriteString("  ]\n")
	b.WriteString("}")
	return b.String()
}

func actionsBlock(actions []string) string {
	lines := make([]string, 0, len(actions))
	for _, a := range actions {
		lines = append(lines, "- "+a)
	}
	return strings.Join(lines, "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return formatFloat(*v)
}
