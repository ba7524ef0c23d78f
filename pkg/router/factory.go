package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/dialogate/pkg/adapter"
	"github.com/zen-systems/dialogate/pkg/config"
	"github.com/zen-systems/dialogate/pkg/pii"
)

// Type names a routing strategy.
type Type string

const (
	TypeBypass          Type = "BYPASS"
	TypeCLU             Type = "CLU"
	TypeCQA             Type = "CQA"
	TypeOrchestration   Type = "ORCHESTRATION"
	TypeFunctionCalling Type = "FUNCTION_CALLING"
	TypeTriageAgent     Type = "TRIAGE_AGENT"
)

// ParseType resolves a configured router type string. Unknown values
// are a configuration error and must abort startup.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeBypass, TypeCLU, TypeCQA, TypeOrchestration, TypeFunctionCalling, TypeTriageAgent:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported router type %q", s)
	}
}

// LanguageService is the slice of the language client the routers use.
type LanguageService interface {
	ConversationAnalyzer
	AnswerClient
	ProjectExporter
}

// New builds the RouteFunc for the configured router type. The chat
// adapter is only required for the LLM-delegated types; the redacter
// may be nil when PII handling is disabled.
func New(ctx context.Context, cfg *config.Config, lang LanguageService, chat adapter.Adapter, red *pii.Redacter) (RouteFunc, error) {
	routerType, err := ParseType(cfg.Router.Type)
	if err != nil {
		return nil, err
	}

	clu := func() RouteFunc {
		p := cfg.Router.CLU
		return NewCLURouter(lang, p.ProjectName, p.DeploymentName, p.ConfidenceThreshold).Route
	}
	cqa := func() RouteFunc {
		p := cfg.Router.CQA
		return NewCQARouter(lang, p.ProjectName, p.DeploymentName, p.ConfidenceThreshold).Route
	}

	switch routerType {
	case TypeBypass:
		return func(ctx context.Context, utterance, lang, id string) *Result {
			return nil
		}, nil

	case TypeCLU:
		return clu(), nil

	case TypeCQA:
		return cqa(), nil

	case TypeOrchestration:
		p := cfg.Router.Orchestration
		thresholds := Thresholds{
			Orchestration: p.ConfidenceThreshold,
			CLU:           cfg.Router.CLU.ConfidenceThreshold,
			CQA:           cfg.Router.CQA.ConfidenceThreshold,
		}
		return NewOrchestrationRouter(lang, p.ProjectName, p.DeploymentName, thresholds).Route, nil

	case TypeFunctionCalling:
		if chat == nil {
			return nil, fmt.Errorf("router type %s requires a chat provider", routerType)
		}
		fc, err := NewFunctionCallingRouter(ctx, chat, cfg.Chat.Model, lang,
			cfg.Router.CLU.ProjectName, clu(),
			cfg.Router.CQA.ProjectName, cqa(),
			red, cfg.Retry.MaxRetries)
		if err != nil {
			return nil, err
		}
		return fc.Route, nil

	case TypeTriageAgent:
		if chat == nil {
			return nil, fmt.Errorf("router type %s requires a chat provider", routerType)
		}
		return NewTriageRouter(chat, cfg.Chat.Model, clu(), cqa(), red, cfg.Retry.MaxRetries).Route, nil
	}

	return nil, fmt.Errorf("unsupported router type %q", cfg.Router.Type)
}
