package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/zen-systems/dialogate/pkg/language"
)

// ConversationAnalyzer submits an utterance to a conversation runtime.
type ConversationAnalyzer interface {
	AnalyzeConversation(ctx context.Context, task language.ConversationTask) (json.RawMessage, error)
}

// CLURouter routes an utterance to the intent classifier.
type CLURouter struct {
	client     ConversationAnalyzer
	project    string
	deployment string
	threshold  float64
}

// NewCLURouter creates a CLU routing adapter.
func NewCLURouter(client ConversationAnalyzer, project, deployment string, threshold float64) *CLURouter {
	return &CLURouter{
		client:     client,
		project:    project,
		deployment: deployment,
		threshold:  threshold,
	}
}

// Route calls the CLU runtime and parses the response. Failures of any
// sort come back inside the Result; routing never panics a turn.
func (r *CLURouter) Route(ctx context.Context, utterance, lang, id string) *Result {
	log.Printf("[router] calling %s:%s runtime", r.project, r.deployment)

	task := language.NewConversationTask(utterance, lang, id, r.project, r.deployment)
	raw, err := r.client.AnalyzeConversation(ctx, task)
	if err != nil {
		log.Printf("[router] runtime call failed: %v", err)
		return &Result{Err: err}
	}

	result, err := ParseCLUResponse(raw, r.threshold)
	if err != nil {
		log.Printf("[router] runtime call failed: %v", err)
		return &Result{Err: err, APIResponse: raw}
	}
	return result
}

type cluIntent struct {
	Category        string  `json:"category"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

type cluPrediction struct {
	TopIntent string      `json:"topIntent"`
	Intents   []cluIntent `json:"intents"`
	Entities  []Entity    `json:"entities"`
}

type conversationEnvelope struct {
	Result struct {
		Prediction cluPrediction `json:"prediction"`
	} `json:"result"`
}

// ParseCLUResponse parses a CLU runtime response. The confidence check
// runs first, then the "None" sentinel check; when both fire, the
// sentinel error wins.
func ParseCLUResponse(raw json.RawMessage, threshold float64) (*Result, error) {
	var env conversationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode clu response: %w", err)
	}

	pred := env.Result.Prediction
	if len(pred.Intents) == 0 {
		return nil, fmt.Errorf("clu response has no intents")
	}
	confidence := pred.Intents[0].ConfidenceScore

	var resErr error
	if confidence < threshold {
		log.Printf("[router] CLU confidence threshold not met")
		resErr = fmt.Errorf("CLU %w", ErrLowConfidence)
	}
	if pred.TopIntent == NoIntentSentinel {
		log.Printf("[router] no intent recognized")
		resErr = ErrNoIntent
	}

	return &Result{
		Kind:        KindCLU,
		Err:         resErr,
		Intent:      pred.TopIntent,
		Entities:    pred.Entities,
		Confidence:  confidence,
		APIResponse: raw,
	}, nil
}
