package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cropagent/pkg/llm"
)

// Pipeline stages, in execution order. Used for structured logging only; the
// pipeline is strictly linear.
type stage string

const (
	stageRetrieving stage = "RETRIEVING"
	stagePrompting  stage = "PROMPTING"
	stageParsing    stage = "PARSING"
	stageGating     stage = "GATING"
	stagePlanning   stage = "PLANNING"
	stageRecording  stage = "RECORDING"
	stageDone       stage = "DONE"
)

// Retriever returns historical case texts similar to the given case, most
// similar first.
type Retriever interface {
	Retrieve(ctx context.Context, c CaseContext) ([]string, error)
}

// DecisionAgent orchestrates the treatment decision and planning pipeline:
// memory retrieval, decision inference, safety gating, plan generation.
type DecisionAgent struct {
	cfg       *Config
	retriever Retriever
	runner    *llm.Runner
	gate      *SafetyGate
	planner   *Planner
	recorder  Recorder
	logger    llm.Logger
	allowed   ActionSet
}

// Option configures optional agent behaviour.
type Option func(*DecisionAgent)

// WithRecorder attaches a cycle recorder. The default discards records.
func WithRecorder(rec Recorder) Option {
	return func(a *DecisionAgent) {
		if rec != nil {
			a.recorder = rec
		}
	}
}

// WithAgentLogger replaces the default logger.
func WithAgentLogger(logger llm.Logger) Option {
	return func(a *DecisionAgent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New wires a DecisionAgent from its policy, memory retriever and prompt
// runner.
func New(cfg *Config, retriever Retriever, runner *llm.Runner, opts ...Option) (*DecisionAgent, error) {
	if cfg == nil {
		return nil, errors.New("agent: config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if retriever == nil {
		return nil, errors.New("agent: retriever cannot be nil")
	}
	if runner == nil {
		return nil, errors.New("agent: runner cannot be nil")
	}

	logger := llm.NewLogger("info")
	allowed := NewActionSet(cfg.Agent.AllowedActions)

	a := &DecisionAgent{
		cfg:       cfg,
		retriever: retriever,
		runner:    runner,
		gate: NewSafetyGate(allowed,
			cfg.Agent.Safety.BlockUnknownActions,
			cfg.Agent.Safety.RequireHumanConfirmation),
		recorder: noopRecorder{},
		logger:   logger,
		allowed:  allowed,
	}
	a.planner = NewPlanner(runner, cfg.Planner.AllowedPlanActions, logger)

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Decide runs the full pipeline for one crop case.
//
// Retrieval and backend failures abort the cycle. Unparseable or
// out-of-vocabulary decisions degrade to the NO_TREATMENT fallback and
// continue through the gate, so a misbehaving model never blocks the
// pipeline.
func (a *DecisionAgent) Decide(ctx context.Context, c CaseContext) (*Result, error) {
	start := time.Now()

	a.logStage(ctx, stageRetrieving, c, nil)
	memory, err := a.retriever.Retrieve(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("agent: retrieve memory: %w", err)
	}

	a.logStage(ctx, stagePrompting, c, llm.Fields{"memory_hits": len(memory)})
	decisionPrompt := DecisionPrompt(c, memory, a.cfg.Agent.AllowedActions)
	raw, err := a.runner.Run(ctx, decisionPrompt)
	if err != nil {
		return nil, err
	}

	a.logStage(ctx, stageParsing, c, nil)
	fellBack := false
	fallbackCause := ""
	rawDecision, err := ParseDecision(raw, a.allowed)
	if err != nil {
		var malformed *MalformedResponseError
		var invalid *InvalidDecisionError
		switch {
		case errors.As(err, &malformed):
			fallbackCause = "malformed_response"
		case errors.As(err, &invalid):
			fallbackCause = "invalid_decision"
		default:
			return nil, err
		}
		fellBack = true
		a.logger.Warn(ctx, "decision parse failed, using fallback", llm.Fields{
			"crop":  c.Crop,
			"cause": fallbackCause,
			"error": err.Error(),
		})
		rawDecision = RawDecision{Decision: FallbackAction, Reason: fallbackReason}
	}

	a.logStage(ctx, stageGating, c, llm.Fields{"decision": rawDecision.Decision})
	decision := a.gate.Validate(rawDecision)

	a.logStage(ctx, stagePlanning, c, llm.Fields{"decision": decision.Decision})
	planPrompt := a.planner.Prompt(c, decision)
	plan, planNote, err := a.planner.BuildPlan(ctx, c, decision, planPrompt)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Decision: decision,
		Plan:     plan,
		PlanNote: planNote,
	}

	a.logStage(ctx, stageRecording, c, nil)
	rec := CycleRecord{
		Timestamp:            time.Now().UTC(),
		Case:                 c,
		MemoryHits:           memory,
		DecisionPromptDigest: llm.DigestString(decisionPrompt),
		PlanPromptDigest:     llm.DigestString(planPrompt),
		Decision:             decision,
		PlanSteps:            len(plan),
		FellBack:             fellBack,
		FallbackCause:        fallbackCause,
	}
	if err := a.recorder.RecordCycle(ctx, rec); err != nil {
		a.logger.Warn(ctx, "cycle record failed", llm.Fields{"error": err.Error()})
	}

	a.logStage(ctx, stageDone, c, llm.Fields{
		"decision":    decision.Decision,
		"safe":        decision.Safe,
		"plan_steps":  len(plan),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (a *DecisionAgent) logStage(ctx context.Context, s stage, c CaseContext, extra llm.Fields) {
	fields := llm.Fields{
		"stage":   string(s),
		"crop":    c.Crop,
		"disease": c.Disease,
	}
	for k, v := range extra {
		fields[k] = v
	}
	a.logger.Debug(ctx, "pipeline stage", fields)
}
