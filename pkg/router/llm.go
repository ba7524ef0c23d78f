package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/zen-systems/dialogate/pkg/adapter"
	"github.com/zen-systems/dialogate/pkg/pii"
)

// ProjectExporter fetches an authoring export of a backend project.
type ProjectExporter interface {
	ExportProject(ctx context.Context, kind, project string) (json.RawMessage, error)
}

// Function names the chat model may pick.
const (
	functionGetCLU = "get_clu"
	functionGetCQA = "get_cqa"
)

const functionCallingPrompt = `You are a conversation router. Pick exactly one function for the user message.
Use get_clu when the message matches one of the registered intents; pass the utterance as the argument.
Use get_cqa when the message asks one of the known questions; pass the question as the argument.
Return ONLY JSON: {"function":"get_clu"|"get_cqa","argument":"..."}.

Registered intents: %s

Known questions:
%s`

// FunctionCallingRouter delegates the routing decision to a chat model
// that chooses between the intent classifier and the QA knowledge base
// via a JSON function-call protocol.
type FunctionCallingRouter struct {
	chat      adapter.Adapter
	model     string
	system    string
	functions map[string]RouteFunc
	red       *pii.Redacter
	attempts  int
}

// NewFunctionCallingRouter builds a function-calling router. The system
// prompt is grounded on the intents and questions exported from the
// backing projects, so construction performs two authoring export jobs.
func NewFunctionCallingRouter(
	ctx context.Context,
	chat adapter.Adapter,
	model string,
	exporter ProjectExporter,
	cluProject string,
	clu RouteFunc,
	cqaProject string,
	cqa RouteFunc,
	red *pii.Redacter,
	attempts int,
) (*FunctionCallingRouter, error) {
	intents, err := GetCLUIntents(ctx, exporter, cluProject)
	if err != nil {
		return nil, fmt.Errorf("unable to get intents: %w", err)
	}
	questions, err := GetCQAQuestions(ctx, exporter, cqaProject)
	if err != nil {
		return nil, fmt.Errorf("unable to get questions: %w", err)
	}

	return &FunctionCallingRouter{
		chat:   chat,
		model:  model,
		system: fmt.Sprintf(functionCallingPrompt, strings.Join(intents, ", "), strings.Join(questions, "\n")),
		functions: map[string]RouteFunc{
			functionGetCLU: newRouterHook(clu, red),
			functionGetCQA: newRouterHook(cqa, red),
		},
		red:      red,
		attempts: attempts,
	}, nil
}

// Route redacts the utterance when PII is enabled, asks the chat model
// for a function call, and dispatches to the chosen sub-router.
func (r *FunctionCallingRouter) Route(ctx context.Context, utterance, lang, id string) *Result {
	text := utterance
	if r.red != nil {
		redacted, err := r.red.Redact(ctx, text, id, lang, true)
		if err != nil {
			log.Printf("[router] pii redaction failed: %v", err)
			return &Result{Err: err}
		}
		text = redacted
	}

	resp, err := adapter.GenerateWithRetry(ctx, r.chat, r.model, r.system+"\n\nUser message:\n"+text, r.attempts, nil)
	if err != nil {
		log.Printf("[router] function-calling chat failed: %v", err)
		return &Result{Err: err}
	}

	call, err := parseFunctionCall(resp.Content)
	if err != nil {
		log.Printf("[router] %v", err)
		return &Result{Err: fmt.Errorf("no function call made")}
	}

	route, ok := r.functions[call.Function]
	if !ok {
		return &Result{Err: fmt.Errorf("unknown function %q", call.Function)}
	}
	return route(ctx, call.Argument, lang, id)
}

type functionCall struct {
	Function string `json:"function"`
	Argument string `json:"argument"`
}

func parseFunctionCall(content string) (*functionCall, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var call functionCall
	if err := json.Unmarshal([]byte(content), &call); err != nil {
		return nil, fmt.Errorf("function-call response invalid: %w", err)
	}
	if call.Function == "" {
		return nil, fmt.Errorf("function-call response missing function")
	}
	return &call, nil
}

// GetCLUIntents returns the intents registered in a classifier project,
// excluding the "None" sentinel.
func GetCLUIntents(ctx context.Context, exporter ProjectExporter, project string) ([]string, error) {
	log.Printf("[router] getting intents from project %s", project)

	raw, err := exporter.ExportProject(ctx, "conversations", project)
	if err != nil {
		return nil, err
	}

	var out struct {
		Assets struct {
			Intents []struct {
				Category string `json:"category"`
			} `json:"intents"`
		} `json:"assets"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode exported project: %w", err)
	}

	var intents []string
	for _, intent := range out.Assets.Intents {
		if intent.Category != NoIntentSentinel {
			intents = append(intents, intent.Category)
		}
	}
	return intents, nil
}

// GetCQAQuestions returns the distinct questions registered in a QA
// project.
func GetCQAQuestions(ctx context.Context, exporter ProjectExporter, project string) ([]string, error) {
	log.Printf("[router] getting questions from project %s", project)

	raw, err := exporter.ExportProject(ctx, "qna", project)
	if err != nil {
		return nil, err
	}

	var out struct {
		Assets struct {
			Qnas []struct {
				Questions []string `json:"Questions"`
			} `json:"Qnas"`
		} `json:"Assets"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode exported project: %w", err)
	}

	seen := make(map[string]bool)
	var questions []string
	for _, qna := range out.Assets.Qnas {
		for _, q := range qna.Questions {
			if !seen[q] {
				seen[q] = true
				questions = append(questions, q)
			}
		}
	}
	sort.Strings(questions)
	return questions, nil
}
