package agent

import (
	"context"
	"time"
)

// CycleRecord captures one full decision cycle for audit.
type CycleRecord struct {
	Timestamp            time.Time   `json:"timestamp"`
	Case                 CaseContext `json:"case"`
	MemoryHits           []string    `json:"memory_hits"`
	DecisionPromptDigest string      `json:"decision_prompt_digest"`
	PlanPromptDigest     string      `json:"plan_prompt_digest,omitempty"`
	Decision             Decision    `json:"decision"`
	PlanSteps            int         `json:"plan_steps"`
	FellBack             bool        `json:"fell_back"`
	FallbackCause        string      `json:"fallback_cause,omitempty"`
}

// Recorder persists decision cycles. Recording is best effort; failures are
// logged and never fail the pipeline.
type Recorder interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
}

type noopRecorder struct{}

func (noopRecorder) RecordCycle(context.Context, CycleRecord) error { return nil }
