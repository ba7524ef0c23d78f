package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/zen-systems/dialogate/pkg/adapter"
	"github.com/zen-systems/dialogate/pkg/pii"
)

const (
	triageRouteCLU = "clu"
	triageRouteCQA = "cqa"
)

const triagePrompt = `You are a triage agent for a conversation system.
Decide whether the user message is a command or request to perform an action (route "clu")
or a question looking for information (route "cqa").
Return ONLY JSON: {"route":"clu"|"cqa"}.

User message:
%s`

// TriageRouter asks a chat model to triage each utterance between the
// intent classifier and the QA knowledge base, then forwards the whole
// utterance to the winner.
type TriageRouter struct {
	chat     adapter.Adapter
	model    string
	clu      RouteFunc
	cqa      RouteFunc
	red      *pii.Redacter
	attempts int
}

// NewTriageRouter builds a triage router over hooked CLU and CQA routes.
func NewTriageRouter(chat adapter.Adapter, model string, clu, cqa RouteFunc, red *pii.Redacter, attempts int) *TriageRouter {
	return &TriageRouter{
		chat:     chat,
		model:    model,
		clu:      newRouterHook(clu, red),
		cqa:      newRouterHook(cqa, red),
		red:      red,
		attempts: attempts,
	}
}

// Route redacts the utterance when PII is enabled, asks the chat model
// which backend should handle it, and dispatches.
func (r *TriageRouter) Route(ctx context.Context, utterance, lang, id string) *Result {
	text := utterance
	if r.red != nil {
		redacted, err := r.red.Redact(ctx, text, id, lang, true)
		if err != nil {
			log.Printf("[router] pii redaction failed: %v", err)
			return &Result{Err: err}
		}
		text = redacted
	}

	resp, err := adapter.GenerateWithRetry(ctx, r.chat, r.model, fmt.Sprintf(triagePrompt, text), r.attempts, nil)
	if err != nil {
		log.Printf("[router] triage chat failed: %v", err)
		return &Result{Err: err}
	}

	pick, err := parseTriageResponse(resp.Content)
	if err != nil {
		log.Printf("[router] %v", err)
		return &Result{Err: err}
	}

	switch pick {
	case triageRouteCLU:
		return r.clu(ctx, text, lang, id)
	case triageRouteCQA:
		return r.cqa(ctx, text, lang, id)
	default:
		return &Result{Err: &UnexpectedRouteKindError{Kind: pick}}
	}
}

func parseTriageResponse(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var pick struct {
		Route string `json:"route"`
	}
	if err := json.Unmarshal([]byte(content), &pick); err != nil {
		return "", fmt.Errorf("triage response invalid: %w", err)
	}
	if pick.Route == "" {
		return "", fmt.Errorf("triage response missing route")
	}
	return pick.Route, nil
}
