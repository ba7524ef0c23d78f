// Package hooks maps recognized intents to application handlers.
package hooks

import (
	"fmt"
	"log"
	"sort"

	"github.com/zen-systems/dialogate/pkg/router"
)

// Handler turns the entities of a recognized intent into a reply.
type Handler func(entities []router.Entity) (string, error)

// Registry is an explicit intent-to-handler table. Handlers are
// registered at startup; dispatch at runtime never falls back to name
// lookup tricks.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an intent. Registering the same intent
// twice is a programming error.
func (r *Registry) Register(intent string, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler for intent %q", intent)
	}
	if _, ok := r.handlers[intent]; ok {
		return fmt.Errorf("handler already registered for intent %q", intent)
	}
	r.handlers[intent] = h
	return nil
}

// Dispatch runs the handler for an intent.
func (r *Registry) Dispatch(intent string, entities []router.Entity) (string, error) {
	h, ok := r.handlers[intent]
	if !ok {
		return "", fmt.Errorf("no handler registered for intent %q", intent)
	}
	log.Printf("[hooks] dispatching intent %s", intent)
	return h(entities)
}

// Handles reports whether a handler exists for the intent.
func (r *Registry) Handles(intent string) bool {
	_, ok := r.handlers[intent]
	return ok
}

// Intents lists the registered intents in sorted order.
func (r *Registry) Intents() []string {
	intents := make([]string, 0, len(r.handlers))
	for intent := range r.handlers {
		intents = append(intents, intent)
	}
	sort.Strings(intents)
	return intents
}

// Validate checks every registered intent against the set of intents
// the classifier project actually knows about.
func (r *Registry) Validate(known []string) error {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	for _, intent := range r.Intents() {
		if !set[intent] {
			return fmt.Errorf("handler registered for unknown intent %q", intent)
		}
	}
	return nil
}

// EntityValue returns the text of the first entity with the given
// category, or empty string.
func EntityValue(entities []router.Entity, category string) string {
	for _, e := range entities {
		if e.Category == category {
			return e.Text
		}
	}
	return ""
}
