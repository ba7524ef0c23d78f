package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/zen-systems/dialogate/pkg/language"
)

// Sub-project kinds an orchestration runtime can dispatch to.
const (
	kindConversation      = "Conversation"
	kindQuestionAnswering = "QuestionAnswering"
)

// Thresholds carries the confidence thresholds an orchestration parse
// needs: its own top-level routing threshold plus the thresholds of the
// two sub-parsers it delegates to.
type Thresholds struct {
	Orchestration float64
	CLU           float64
	CQA           float64
}

// OrchestrationRouter routes via a combined runtime that itself decides
// between the intent classifier and the QA knowledge base.
type OrchestrationRouter struct {
	client     ConversationAnalyzer
	project    string
	deployment string
	thresholds Thresholds
}

// NewOrchestrationRouter creates an orchestration routing adapter.
func NewOrchestrationRouter(client ConversationAnalyzer, project, deployment string, thresholds Thresholds) *OrchestrationRouter {
	return &OrchestrationRouter{
		client:     client,
		project:    project,
		deployment: deployment,
		thresholds: thresholds,
	}
}

// Route calls the orchestration runtime and parses the nested result.
func (r *OrchestrationRouter) Route(ctx context.Context, utterance, lang, id string) *Result {
	log.Printf("[router] calling %s:%s runtime", r.project, r.deployment)

	task := language.NewConversationTask(utterance, lang, id, r.project, r.deployment)
	raw, err := r.client.AnalyzeConversation(ctx, task)
	if err != nil {
		log.Printf("[router] runtime call failed: %v", err)
		return &Result{Err: err}
	}

	result, err := ParseOrchestrationResponse(raw, r.thresholds)
	if err != nil {
		log.Printf("[router] runtime call failed: %v", err)
		return &Result{Err: err, APIResponse: raw}
	}
	return result
}

type orchTarget struct {
	ConfidenceScore   float64         `json:"confidenceScore"`
	TargetProjectKind string          `json:"targetProjectKind"`
	Result            json.RawMessage `json:"result"`
}

type orchEnvelope struct {
	Result struct {
		Prediction struct {
			TopIntent string                     `json:"topIntent"`
			Intents   map[string]json.RawMessage `json:"intents"`
		} `json:"prediction"`
	} `json:"result"`
}

// ParseOrchestrationResponse parses a combined runtime response. The
// top-level confidence check runs against the routing decision itself;
// the nested payload is then handed to the CLU or CQA parser, whose own
// error handling runs on the full sub-result. Any top-level error is
// attached only after the sub-parse, overwriting a sub-parser error.
func ParseOrchestrationResponse(raw json.RawMessage, thresholds Thresholds) (*Result, error) {
	var env orchEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode orchestration response: %w", err)
	}

	pred := env.Result.Prediction
	rawTarget, ok := pred.Intents[pred.TopIntent]
	if !ok {
		return nil, fmt.Errorf("orchestration top intent %q missing from intents", pred.TopIntent)
	}
	var target orchTarget
	if err := json.Unmarshal(rawTarget, &target); err != nil {
		return nil, fmt.Errorf("decode orchestration intent: %w", err)
	}

	var topErr error
	if target.ConfidenceScore < thresholds.Orchestration {
		log.Printf("[router] orchestration confidence threshold not met")
		topErr = fmt.Errorf("orchestration %w", ErrLowConfidence)
	}

	var result *Result
	var err error
	switch target.TargetProjectKind {
	case kindConversation:
		result, err = ParseCLUResponse(rawTarget, thresholds.CLU)
	case kindQuestionAnswering:
		result, err = ParseCQAResponse(target.Result, thresholds.CQA)
	default:
		return &Result{
			Err:         &UnexpectedRouteKindError{Kind: target.TargetProjectKind},
			APIResponse: raw,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if topErr != nil {
		result.Err = topErr
	}
	result.APIResponse = raw
	return result, nil
}
