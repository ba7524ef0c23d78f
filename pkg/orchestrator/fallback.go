package orchestrator

import (
	"context"
	"log"

	"github.com/zen-systems/dialogate/pkg/adapter"
	"github.com/zen-systems/dialogate/pkg/pii"
)

// ChatFallback answers a turn with the configured chat model, retrying
// transient provider failures up to maxAttempts calls. When a redacter
// is supplied the model only ever sees redacted text.
func ChatFallback(chat adapter.Adapter, model string, red *pii.Redacter, maxAttempts int) FallbackFunc {
	return func(ctx context.Context, query, lang, id string) (string, error) {
		if red != nil {
			redacted, err := red.Redact(ctx, query, id, lang, true)
			if err != nil {
				return "", err
			}
			query = redacted
		}
		log.Printf("[orchestrator] falling back to %s", chat.Name())
		resp, err := adapter.GenerateWithRetry(ctx, chat, model, query, maxAttempts, nil)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}
