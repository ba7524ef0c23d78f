package router

import (
	"context"

	"github.com/zen-systems/dialogate/pkg/pii"
)

// newRouterHook wraps a route so PII placeholders in the incoming text
// are reconstructed before the backend sees it. The LLM-delegated
// routers hand their chat model redacted text; the classifier and QA
// runtimes get the original spans back.
func newRouterHook(route RouteFunc, red *pii.Redacter) RouteFunc {
	if red == nil {
		return route
	}
	return func(ctx context.Context, text, lang, id string) *Result {
		text = red.Reconstruct(text, id, true)
		return route(ctx, text, lang, id)
	}
}
