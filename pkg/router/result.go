package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the closed set of route result variants.
type Kind string

const (
	// KindCLU marks a result produced by the intent classifier.
	KindCLU Kind = "clu_result"

	// KindCQA marks a result produced by the knowledge-base QA runtime.
	KindCQA Kind = "cqa_result"
)

// NoIntentSentinel is the classifier's explicit "no intent" intent.
const NoIntentSentinel = "None"

// NoAnswerID is the reserved answer id meaning the default "no answer"
// answer was returned.
const NoAnswerID = -1

// Soft routing misses. They never abort a turn; the orchestrator sees
// them on Result.Err and falls back.
var (
	ErrLowConfidence = errors.New("confidence threshold not met")
	ErrNoIntent      = errors.New("no intent recognized")
	ErrNoAnswer      = errors.New("no answer found")
)

// UnexpectedRouteKindError marks a malformed orchestration response
// naming a sub-project kind this process cannot dispatch.
type UnexpectedRouteKindError struct {
	Kind string
}

func (e *UnexpectedRouteKindError) Error() string {
	return fmt.Sprintf("unexpected orchestration intent kind: %s", e.Kind)
}

// Entity is one span extracted by the intent classifier.
type Entity struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Result is the uniform outcome of one routing attempt. Kind tells
// which fields are populated; Err is non-nil for soft misses and for
// any failure while building, sending, or parsing. Callers must check
// Err explicitly: a populated Intent or Answer is not trustworthy on
// its own.
type Result struct {
	Kind        Kind
	Err         error
	Intent      string
	Entities    []Entity
	Answer      string
	Question    *string
	Confidence  float64
	APIResponse json.RawMessage
}

// MarshalJSON renders the result as a flat object. The error key is
// emitted only when an error is present, so an accepted result carries
// no error field at all.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if r.Kind != "" {
		out["kind"] = r.Kind
	}
	if r.Err != nil {
		out["error"] = r.Err.Error()
	}
	switch r.Kind {
	case KindCLU:
		out["intent"] = r.Intent
		out["entities"] = r.Entities
		out["confidence"] = r.Confidence
	case KindCQA:
		out["answer"] = r.Answer
		out["question"] = r.Question
		out["confidence"] = r.Confidence
	}
	if len(r.APIResponse) > 0 {
		out["api_response"] = r.APIResponse
	}
	return json.Marshal(out)
}

// RouteFunc is the uniform routing contract: one utterance in, one
// Result out. A nil Result means the router was bypassed entirely.
type RouteFunc func(ctx context.Context, utterance, lang, id string) *Result
