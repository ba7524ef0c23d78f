// Package orchestrator ties language detection, routing, and the chat
// fallback into a single conversation turn.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/zen-systems/dialogate/pkg/router"
)

// Route values reported in a turn response.
const (
	RouteFallback = "fallback"
	RouteCLU      = "clu"
	RouteCQA      = "cqa"
)

// LanguageDetector resolves the language of an utterance.
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// FallbackFunc produces a reply when no backend route handled the turn.
type FallbackFunc func(ctx context.Context, query, lang, id string) (string, error)

// Response is the envelope returned for every conversation turn.
type Response struct {
	ConversationID string         `json:"id"`
	Query          string         `json:"query"`
	RouterType     string         `json:"router_type"`
	Route          string         `json:"route"`
	Result         any            `json:"result"`
	AttemptedRoute *router.Result `json:"attempted_route,omitempty"`
}

// Orchestrator runs conversation turns.
type Orchestrator struct {
	routerType      router.Type
	route           router.RouteFunc
	detect          LanguageDetector
	fallback        FallbackFunc
	defaultLanguage string
}

// New creates an orchestrator. The detector may be nil, in which case
// every turn uses the default language.
func New(routerType router.Type, route router.RouteFunc, detect LanguageDetector, fallback FallbackFunc, defaultLanguage string) (*Orchestrator, error) {
	if route == nil {
		return nil, fmt.Errorf("route function is required")
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback function is required")
	}
	return &Orchestrator{
		routerType:      routerType,
		route:           route,
		detect:          detect,
		fallback:        fallback,
		defaultLanguage: defaultLanguage,
	}, nil
}

// Orchestrate runs one turn. A turn falls back to chat when the router
// bypasses or when its result carries an error; the failed routing
// attempt is kept on the response. Only a fallback failure aborts the
// turn.
func (o *Orchestrator) Orchestrate(ctx context.Context, message, id string) (*Response, error) {
	if id == "" {
		id = uuid.NewString()
	}

	lang := o.defaultLanguage
	if o.detect != nil {
		detected, err := o.detect.DetectLanguage(ctx, message)
		if err != nil {
			log.Printf("[orchestrator] language detection failed, using %q: %v", lang, err)
		} else {
			lang = detected
		}
	}

	resp := &Response{
		ConversationID: id,
		Query:          message,
		RouterType:     string(o.routerType),
	}

	result := o.route(ctx, message, lang, id)
	if result != nil && result.Err == nil {
		resp.Route = strings.TrimSuffix(string(result.Kind), "_result")
		resp.Result = result
		return resp, nil
	}

	answer, err := o.fallback(ctx, message, lang, id)
	if err != nil {
		return nil, fmt.Errorf("fallback failed: %w", err)
	}
	resp.Route = RouteFallback
	resp.Result = answer
	resp.AttemptedRoute = result
	return resp, nil
}
