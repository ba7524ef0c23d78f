package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// AnswerClient queries a knowledge base for answers.
type AnswerClient interface {
	GetAnswers(ctx context.Context, project, deployment, question string, top int) (json.RawMessage, error)
}

// CQARouter routes an utterance to the knowledge-base QA runtime.
type CQARouter struct {
	client     AnswerClient
	project    string
	deployment string
	threshold  float64
}

// NewCQARouter creates a CQA routing adapter.
func NewCQARouter(client AnswerClient, project, deployment string, threshold float64) *CQARouter {
	return &CQARouter{
		client:     client,
		project:    project,
		deployment: deployment,
		threshold:  threshold,
	}
}

// Route calls the QA runtime and parses the top-ranked answer.
func (r *CQARouter) Route(ctx context.Context, utterance, lang, id string) *Result {
	log.Printf("[router] calling %s:%s runtime", r.project, r.deployment)

	raw, err := r.client.GetAnswers(ctx, r.project, r.deployment, utterance, 1)
	if err != nil {
		log.Printf("[router] runtime call failed: %v", err)
		return &Result{Err: err}
	}

	result, err := ParseCQAResponse(raw, r.threshold)
	if err != nil {
		log.Printf("[router] runtime call failed: %v", err)
		return &Result{Err: err, APIResponse: raw}
	}
	return result
}

type qnaAnswer struct {
	Answer          string   `json:"answer"`
	ConfidenceScore float64  `json:"confidenceScore"`
	ID              int      `json:"id"`
	Questions       []string `json:"questions"`
}

type qnaEnvelope struct {
	Answers []qnaAnswer `json:"answers"`
}

// ParseCQAResponse parses a QA runtime response. An answer id of
// NoAnswerID means the default answer came back: the error is set and
// the matched question stays null.
func ParseCQAResponse(raw json.RawMessage, threshold float64) (*Result, error) {
	var env qnaEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode cqa response: %w", err)
	}
	if len(env.Answers) == 0 {
		return nil, fmt.Errorf("cqa response has no answers")
	}

	top := env.Answers[0]
	var resErr error
	var question *string

	if top.ConfidenceScore < threshold {
		log.Printf("[router] CQA confidence threshold not met")
		resErr = fmt.Errorf("CQA %w", ErrLowConfidence)
	}
	if top.ID == NoAnswerID {
		log.Printf("[router] no answer found")
		resErr = ErrNoAnswer
	} else if len(top.Questions) > 0 {
		question = &top.Questions[0]
	}

	return &Result{
		Kind:        KindCQA,
		Err:         resErr,
		Answer:      top.Answer,
		Question:    question,
		Confidence:  top.ConfidenceScore,
		APIResponse: raw,
	}, nil
}
