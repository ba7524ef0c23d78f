package orchestrator

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/zen-systems/dialogate/pkg/adapter"
)

type splitChat struct {
	content string
	err     error
}

func (s *splitChat) Name() string     { return "split" }
func (s *splitChat) Models() []string { return []string{"split-1"} }

func (s *splitChat) Generate(ctx context.Context, model, prompt string) (*adapter.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &adapter.Response{Content: s.content, Adapter: s.Name(), Model: model}, nil
}

func TestSplitUtterances(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		want    []string
	}{
		{
			name:    "two requests",
			content: `["cancel order 12345", "when do you open?"]`,
			want:    []string{"cancel order 12345", "when do you open?"},
		},
		{
			name:    "fenced",
			content: "```json\n[\"hello\"]\n```",
			want:    []string{"hello"},
		},
		{
			name:    "blank parts dropped",
			content: `["  ", "cancel my order", ""]`,
			want:    []string{"cancel my order"},
		},
		{
			name:    "prose degrades to whole message",
			content: "the message has two parts",
			want:    []string{"cancel order 12345 and when do you open?"},
		},
		{
			name:    "empty list degrades to whole message",
			content: `[]`,
			want:    []string{"cancel order 12345 and when do you open?"},
		},
		{
			name: "chat failure degrades to whole message",
			err:  fmt.Errorf("rate limited"),
			want: []string{"cancel order 12345 and when do you open?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &splitChat{content: tt.content, err: tt.err}
			got := SplitUtterances(context.Background(), chat, "split-1",
				"cancel order 12345 and when do you open?")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitUtterances = %v, want %v", got, tt.want)
			}
		})
	}
}
