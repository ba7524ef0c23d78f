package router

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/zen-systems/dialogate/pkg/config"
)

type fakeLanguageService struct {
	*fakeAnalyzer
	*fakeAnswerer
	*fakeExporter
}

func newFakeLanguageService() *fakeLanguageService {
	return &fakeLanguageService{
		fakeAnalyzer: &fakeAnalyzer{raw: cluResponse("CancelOrder", 0.91, `[]`)},
		fakeAnswerer: &fakeAnswerer{raw: qnaResponse("9am", 0.8, 7, `["q"]`)},
		fakeExporter: demoExporter(),
	}
}

func testConfig(routerType string) *config.Config {
	return &config.Config{
		Router: config.RouterConfig{
			Type:          routerType,
			CLU:           config.ProjectConfig{ProjectName: "orders", DeploymentName: "production", ConfidenceThreshold: 0.5},
			CQA:           config.ProjectConfig{ProjectName: "faq", DeploymentName: "production", ConfidenceThreshold: 0.5},
			Orchestration: config.ProjectConfig{ProjectName: "dispatch", DeploymentName: "production", ConfidenceThreshold: 0.5},
		},
		Chat: config.ChatConfig{Model: "stub-1"},
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"BYPASS", TypeBypass, false},
		{"clu", TypeCLU, false},
		{"Cqa", TypeCQA, false},
		{" orchestration ", TypeOrchestration, false},
		{"FUNCTION_CALLING", TypeFunctionCalling, false},
		{"triage_agent", TypeTriageAgent, false},
		{"LUIS", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseType(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseType(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewBypassRoutesNothing(t *testing.T) {
	route, err := New(context.Background(), testConfig("BYPASS"), newFakeLanguageService(), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if result := route(context.Background(), "anything", "en", "conv-1"); result != nil {
		t.Errorf("bypass produced a result: %+v", result)
	}
}

func TestNewCLU(t *testing.T) {
	svc := newFakeLanguageService()
	route, err := New(context.Background(), testConfig("CLU"), svc, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := route(context.Background(), "cancel my order", "en", "conv-1")
	if result == nil || result.Err != nil {
		t.Fatalf("result = %+v", result)
	}
	if result.Intent != "CancelOrder" {
		t.Errorf("intent = %q", result.Intent)
	}
	if len(svc.fakeAnalyzer.tasks) != 1 {
		t.Errorf("analyzer calls = %d, want 1", len(svc.fakeAnalyzer.tasks))
	}
}

func TestNewCQA(t *testing.T) {
	svc := newFakeLanguageService()
	route, err := New(context.Background(), testConfig("CQA"), svc, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := route(context.Background(), "when do you open?", "en", "conv-1")
	if result == nil || result.Err != nil {
		t.Fatalf("result = %+v", result)
	}
	if result.Answer != "9am" {
		t.Errorf("answer = %q", result.Answer)
	}
}

func TestNewOrchestration(t *testing.T) {
	svc := newFakeLanguageService()
	target := `{
		"confidenceScore": 0.9,
		"targetProjectKind": "Conversation",
		"result": {
			"prediction": {
				"topIntent": "CancelOrder",
				"intents": [{"category":"CancelOrder","confidenceScore":0.91}],
				"entities": []
			}
		}
	}`
	svc.fakeAnalyzer.raw = orchResponse("orders", target)

	route, err := New(context.Background(), testConfig("ORCHESTRATION"), svc, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	result := route(context.Background(), "cancel my order", "en", "conv-1")
	if result == nil || result.Err != nil {
		t.Fatalf("result = %+v", result)
	}
	if result.Kind != KindCLU {
		t.Errorf("kind = %q", result.Kind)
	}
}

func TestNewFunctionCalling(t *testing.T) {
	svc := newFakeLanguageService()
	chat := &stubChat{content: `{"function":"get_cqa","argument":"when do you open?"}`}

	route, err := New(context.Background(), testConfig("FUNCTION_CALLING"), svc, chat, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	result := route(context.Background(), "hey, when do you open?", "en", "conv-1")
	if result == nil || result.Err != nil {
		t.Fatalf("result = %+v", result)
	}
	if result.Answer != "9am" {
		t.Errorf("answer = %q", result.Answer)
	}
}

func TestNewLLMTypesRequireChat(t *testing.T) {
	for _, routerType := range []string{"FUNCTION_CALLING", "TRIAGE_AGENT"} {
		if _, err := New(context.Background(), testConfig(routerType), newFakeLanguageService(), nil, nil); err == nil {
			t.Errorf("New(%s) without chat: expected error", routerType)
		}
	}
}

func TestNewUnknownTypeFatal(t *testing.T) {
	if _, err := New(context.Background(), testConfig("LUIS"), newFakeLanguageService(), nil, nil); err == nil {
		t.Fatal("expected error for unknown router type")
	}
}

func TestResultMarshalJSON(t *testing.T) {
	question := "when do you open?"
	tests := []struct {
		name    string
		result  *Result
		want    []string
		wantNot []string
	}{
		{
			name:    "accepted clu",
			result:  &Result{Kind: KindCLU, Intent: "CancelOrder", Confidence: 0.91, Entities: []Entity{}},
			want:    []string{`"kind":"clu_result"`, `"intent":"CancelOrder"`},
			wantNot: []string{`"error"`, `"answer"`},
		},
		{
			name:    "cqa with question",
			result:  &Result{Kind: KindCQA, Answer: "9am", Question: &question, Confidence: 0.8},
			want:    []string{`"kind":"cqa_result"`, `"answer":"9am"`, `"question":"when do you open?"`},
			wantNot: []string{`"intent"`},
		},
		{
			name:   "soft miss",
			result: &Result{Kind: KindCLU, Err: ErrNoIntent, Intent: NoIntentSentinel},
			want:   []string{`"error":"no intent recognized"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			for _, needle := range tt.want {
				if !strings.Contains(string(data), needle) {
					t.Errorf("json %s missing %s", data, needle)
				}
			}
			for _, needle := range tt.wantNot {
				if strings.Contains(string(data), needle) {
					t.Errorf("json %s must not contain %s", data, needle)
				}
			}
		})
	}
}
