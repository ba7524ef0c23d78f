package pii

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zen-systems/dialogate/pkg/language"
)

// Recognizer detects sensitive spans in a document.
type Recognizer interface {
	RecognizePII(ctx context.Context, text, lang string) (*language.PIIResult, error)
}

// entry maps one minted placeholder to the entity text it replaced.
// Offset and Length locate the entity in the text it was recognized in;
// they are only meaningful for the redaction immediately following
// recognition.
type entry struct {
	placeholder string
	entity      string
	offset      int
	length      int
}

// Redacter recognizes, redacts, and reconstructs PII, keyed by
// conversation id. The mapping store is guarded by a mutex so turns for
// different conversations can run concurrently; the placeholder counter
// is monotonic across all conversations for the life of the Redacter.
type Redacter struct {
	rec        Recognizer
	categories map[string]bool
	threshold  float64

	counter  atomic.Int64
	mu       sync.Mutex
	mappings map[string][]entry
}

// NewRedacter creates a Redacter with the given category allow-list and
// confidence threshold. Category matching is case-insensitive.
func NewRedacter(rec Recognizer, categories []string, threshold float64) *Redacter {
	allowed := make(map[string]bool, len(categories))
	for _, category := range categories {
		allowed[strings.ToUpper(strings.TrimSpace(category))] = true
	}
	return &Redacter{
		rec:        rec,
		categories: allowed,
		threshold:  threshold,
		mappings:   make(map[string][]entry),
	}
}

// placeholderFor mints a globally unique redaction token.
func (r *Redacter) placeholderFor(category string) string {
	return fmt.Sprintf("{PII_%s_%d}", category, r.counter.Add(1))
}

// Recognize detects entities in text and records a placeholder mapping
// for the conversation when cache is true. It reports whether at least
// one entity of an allowed category passed the confidence threshold.
// No mapping is stored when nothing qualifies.
func (r *Redacter) Recognize(ctx context.Context, text, id, lang string, cache bool) (bool, error) {
	result, err := r.rec.RecognizePII(ctx, text, lang)
	if err != nil {
		return false, err
	}
	if result.IsError {
		return false, nil
	}

	var entries []entry
	for _, ent := range result.Entities {
		category := strings.ToUpper(ent.Category)
		if !r.categories[category] || ent.ConfidenceScore <= r.threshold {
			continue
		}
		entries = append(entries, entry{
			placeholder: r.placeholderFor(category),
			entity:      ent.Text,
			offset:      ent.Offset,
			length:      ent.Length,
		})
	}

	if len(entries) == 0 {
		return false, nil
	}
	if cache {
		r.mu.Lock()
		r.mappings[id] = entries
		r.mu.Unlock()
	}
	return true, nil
}

// Redact replaces recognized entities with their placeholders. When a
// mapping already exists for the conversation it is applied directly
// without calling the recognizer again. When cache is false the fresh
// mapping is discarded after use.
func (r *Redacter) Redact(ctx context.Context, text, id, lang string, cache bool) (string, error) {
	r.mu.Lock()
	existing, ok := r.mappings[id]
	r.mu.Unlock()
	if ok {
		return applyRedaction(text, existing), nil
	}

	found, err := r.Recognize(ctx, text, id, lang, true)
	if err != nil {
		return "", err
	}
	if !found {
		log.Printf("[pii] no PII entities found")
		return text, nil
	}

	r.mu.Lock()
	entries := r.mappings[id]
	if !cache {
		delete(r.mappings, id)
	}
	r.mu.Unlock()

	// The mapping was minted against this exact text, so the recorded
	// spans are authoritative: replace by offset, end to start, which
	// cannot corrupt a neighboring entity or an inserted placeholder.
	return applySpans(text, entries), nil
}

// Reconstruct replaces placeholders with their original entity text.
// A missing mapping is tolerated: the text is returned unchanged. When
// cache is false the mapping is discarded after use.
func (r *Redacter) Reconstruct(text, id string, cache bool) string {
	r.mu.Lock()
	entries, ok := r.mappings[id]
	if ok && !cache {
		delete(r.mappings, id)
	}
	r.mu.Unlock()

	if !ok {
		log.Printf("[pii] no mapping for id: %s", id)
		return text
	}

	result := text
	for _, e := range entries {
		result = strings.ReplaceAll(result, e.placeholder, e.entity)
	}
	return result
}

// Remove evicts the mapping for a conversation.
func (r *Redacter) Remove(id string) {
	r.mu.Lock()
	_, ok := r.mappings[id]
	delete(r.mappings, id)
	r.mu.Unlock()

	if !ok {
		log.Printf("[pii] no mapping for id: %s", id)
	}
}

// applySpans redacts by recorded span offsets, replacing from the end
// of the text so earlier offsets stay valid.
func applySpans(text string, entries []entry) string {
	ordered := make([]entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].offset > ordered[j].offset
	})

	result := text
	for _, e := range ordered {
		end := e.offset + e.length
		if e.offset < 0 || end > len(result) || result[e.offset:end] != e.entity {
			// Span does not line up with this text; fall back to search.
			result = strings.ReplaceAll(result, e.entity, e.placeholder)
			continue
		}
		result = result[:e.offset] + e.placeholder + result[end:]
	}
	return result
}

// applyRedaction re-applies an existing mapping by entity text. Longer
// entities go first so an entity whose text is a substring of another
// cannot corrupt the longer match.
func applyRedaction(text string, entries []entry) string {
	ordered := make([]entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].entity) > len(ordered[j].entity)
	})

	result := text
	for _, e := range ordered {
		result = strings.ReplaceAll(result, e.entity, e.placeholder)
	}
	return result
}
