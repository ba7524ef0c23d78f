package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/zen-systems/dialogate/pkg/adapter"
)

const splitPrompt = `Split the user message into self-contained utterances, one per request or question it contains.
Return ONLY a JSON array of strings. A message with a single request yields a one-element array.

User message:
%s`

// SplitUtterances asks the chat model to break a multi-intent message
// into separately routable utterances. Any failure degrades to treating
// the whole message as one utterance; splitting is best effort and must
// never lose a turn.
func SplitUtterances(ctx context.Context, chat adapter.Adapter, model, message string) []string {
	resp, err := chat.Generate(ctx, model, fmt.Sprintf(splitPrompt, message))
	if err != nil {
		log.Printf("[orchestrator] utterance split failed: %v", err)
		return []string{message}
	}

	content := strings.TrimSpace(resp.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parts []string
	if err := json.Unmarshal([]byte(content), &parts); err != nil {
		log.Printf("[orchestrator] utterance split returned no list")
		return []string{message}
	}

	var utterances []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			utterances = append(utterances, part)
		}
	}
	if len(utterances) == 0 {
		return []string{message}
	}
	return utterances
}
