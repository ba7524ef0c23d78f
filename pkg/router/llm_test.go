package router

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/zen-systems/dialogate/pkg/adapter"
)

type stubChat struct {
	content string
	err     error
	prompts []string
}

func (s *stubChat) Name() string { return "stub" }

func (s *stubChat) Models() []string { return []string{"stub-1"} }

func (s *stubChat) Generate(ctx context.Context, model, prompt string) (*adapter.Response, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	return &adapter.Response{Content: s.content, Adapter: s.Name(), Model: model}, nil
}

type fakeExporter struct {
	exports map[string]json.RawMessage
	err     error
}

func (f *fakeExporter) ExportProject(ctx context.Context, kind, project string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.exports[kind], nil
}

func demoExporter() *fakeExporter {
	return &fakeExporter{exports: map[string]json.RawMessage{
		"conversations": json.RawMessage(`{"assets":{"intents":[
			{"category":"CancelOrder"},{"category":"OrderStatus"},{"category":"None"}]}}`),
		"qna": json.RawMessage(`{"Assets":{"Qnas":[
			{"Questions":["when do you open?","do you ship abroad?"]},
			{"Questions":["when do you open?"]}]}}`),
	}}
}

// captureRoute records the utterances it was dispatched with.
func captureRoute(result *Result) (RouteFunc, *[]string) {
	var seen []string
	return func(ctx context.Context, utterance, lang, id string) *Result {
		seen = append(seen, utterance)
		return result
	}, &seen
}

func TestGetCLUIntents(t *testing.T) {
	intents, err := GetCLUIntents(context.Background(), demoExporter(), "orders")
	if err != nil {
		t.Fatalf("GetCLUIntents failed: %v", err)
	}
	// The "None" sentinel is not a routable intent.
	want := []string{"CancelOrder", "OrderStatus"}
	if !reflect.DeepEqual(intents, want) {
		t.Errorf("intents = %v, want %v", intents, want)
	}
}

func TestGetCQAQuestions(t *testing.T) {
	questions, err := GetCQAQuestions(context.Background(), demoExporter(), "faq")
	if err != nil {
		t.Fatalf("GetCQAQuestions failed: %v", err)
	}
	want := []string{"do you ship abroad?", "when do you open?"}
	if !reflect.DeepEqual(questions, want) {
		t.Errorf("questions = %v, want %v", questions, want)
	}
}

func TestParseFunctionCall(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    functionCall
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"function":"get_clu","argument":"cancel order 12"}`,
			want:    functionCall{Function: "get_clu", Argument: "cancel order 12"},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"function\":\"get_cqa\",\"argument\":\"when do you open?\"}\n```",
			want:    functionCall{Function: "get_cqa", Argument: "when do you open?"},
		},
		{
			name:    "prose",
			content: "I would route this to the classifier.",
			wantErr: true,
		},
		{
			name:    "missing function",
			content: `{"argument":"hello"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := parseFunctionCall(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFunctionCall failed: %v", err)
			}
			if *call != tt.want {
				t.Errorf("call = %+v, want %+v", *call, tt.want)
			}
		})
	}
}

func TestFunctionCallingRouterDispatch(t *testing.T) {
	chat := &stubChat{content: `{"function":"get_clu","argument":"cancel order 12345"}`}
	clu, cluSeen := captureRoute(&Result{Kind: KindCLU, Intent: "CancelOrder"})
	cqa, cqaSeen := captureRoute(&Result{Kind: KindCQA})

	r, err := NewFunctionCallingRouter(context.Background(), chat, "stub-1", demoExporter(),
		"orders", clu, "faq", cqa, nil, 1)
	if err != nil {
		t.Fatalf("NewFunctionCallingRouter failed: %v", err)
	}

	result := r.Route(context.Background(), "please cancel order 12345", "en", "conv-1")
	if result.Err != nil {
		t.Fatalf("Err = %v", result.Err)
	}
	if result.Intent != "CancelOrder" {
		t.Errorf("intent = %q", result.Intent)
	}

	// The sub-router receives the model's argument, not the raw turn.
	if want := []string{"cancel order 12345"}; !reflect.DeepEqual(*cluSeen, want) {
		t.Errorf("clu saw %v, want %v", *cluSeen, want)
	}
	if len(*cqaSeen) != 0 {
		t.Errorf("cqa saw %v, want nothing", *cqaSeen)
	}

	// The prompt is grounded on the exported intents and questions.
	if len(chat.prompts) != 1 {
		t.Fatalf("prompts = %d, want 1", len(chat.prompts))
	}
	prompt := chat.prompts[0]
	for _, needle := range []string{"CancelOrder", "OrderStatus", "when do you open?", "please cancel order 12345"} {
		if !strings.Contains(prompt, needle) {
			t.Errorf("prompt missing %q", needle)
		}
	}
}

func TestFunctionCallingRouterNoCall(t *testing.T) {
	chat := &stubChat{content: "I cannot decide."}
	clu, _ := captureRoute(&Result{Kind: KindCLU})
	cqa, _ := captureRoute(&Result{Kind: KindCQA})

	r, err := NewFunctionCallingRouter(context.Background(), chat, "stub-1", demoExporter(),
		"orders", clu, "faq", cqa, nil, 1)
	if err != nil {
		t.Fatalf("NewFunctionCallingRouter failed: %v", err)
	}

	result := r.Route(context.Background(), "hmm", "en", "conv-1")
	if result.Err == nil {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Err.Error(), "no function call made") {
		t.Errorf("err = %v", result.Err)
	}
}

func TestFunctionCallingRouterUnknownFunction(t *testing.T) {
	chat := &stubChat{content: `{"function":"get_weather","argument":"x"}`}
	clu, _ := captureRoute(&Result{Kind: KindCLU})
	cqa, _ := captureRoute(&Result{Kind: KindCQA})

	r, err := NewFunctionCallingRouter(context.Background(), chat, "stub-1", demoExporter(),
		"orders", clu, "faq", cqa, nil, 1)
	if err != nil {
		t.Fatalf("NewFunctionCallingRouter failed: %v", err)
	}

	result := r.Route(context.Background(), "hmm", "en", "conv-1")
	if result.Err == nil || !strings.Contains(result.Err.Error(), "get_weather") {
		t.Errorf("err = %v", result.Err)
	}
}

func TestFunctionCallingRouterChatFailure(t *testing.T) {
	chat := &stubChat{err: fmt.Errorf("rate limited")}
	clu, _ := captureRoute(&Result{Kind: KindCLU})
	cqa, _ := captureRoute(&Result{Kind: KindCQA})

	r, err := NewFunctionCallingRouter(context.Background(), chat, "stub-1", demoExporter(),
		"orders", clu, "faq", cqa, nil, 1)
	if err != nil {
		t.Fatalf("NewFunctionCallingRouter failed: %v", err)
	}

	result := r.Route(context.Background(), "hmm", "en", "conv-1")
	if result.Err == nil {
		t.Fatal("expected error result")
	}
}

func TestNewFunctionCallingRouterExportFailure(t *testing.T) {
	exporter := &fakeExporter{err: fmt.Errorf("export job failed")}
	clu, _ := captureRoute(nil)
	cqa, _ := captureRoute(nil)

	_, err := NewFunctionCallingRouter(context.Background(), &stubChat{}, "stub-1", exporter,
		"orders", clu, "faq", cqa, nil, 1)
	if err == nil {
		t.Fatal("expected error")
	}
}
