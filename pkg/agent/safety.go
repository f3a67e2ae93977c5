package agent

// SafetyGate checks decisions against the allowed action vocabulary. Only
// entirely unknown actions are blocked. Severity-based overrides are
// intentionally absent so the model keeps full decision authority over
// recognised actions.
type SafetyGate struct {
	allowed             ActionSet
	blockUnknown        bool
	requireConfirmation bool
}

// NewSafetyGate builds a gate from the agent safety configuration.
func NewSafetyGate(allowed ActionSet, blockUnknown, requireConfirmation bool) *SafetyGate {
	return &SafetyGate{
		allowed:             allowed,
		blockUnknown:        blockUnknown,
		requireConfirmation: requireConfirmation,
	}
}

// Validate enriches raw with safety metadata. Unknown actions are replaced
// with the blocked fallback when blocking is enabled; everything else passes
// through unchanged.
func (g *SafetyGate) Validate(raw RawDecision) Decision {
	action := raw.Decision
	if action == "" {
		action = FallbackAction
	}

	if g.blockUnknown && !g.allowed.Contains(action) {
		return Decision{
			Decision: FallbackAction,
			Reason:   blockedReason,
			Safe:     false,
			Override: true,
		}
	}

	return Decision{
		Decision:             action,
		Reason:               raw.Reason,
		Safe:                 true,
		Override:             false,
		RequiresConfirmation: g.requireConfirmation,
	}
}
