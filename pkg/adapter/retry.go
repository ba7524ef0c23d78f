package adapter

import (
	"context"
	"log"
	"time"
)

// GenerateWithRetry calls Generate up to maxAttempts times, retrying
// only failures IsTransient accepts. The wait before the n-th retry
// doubles from one second, capped at thirty. A nil sleep means
// time.Sleep.
func GenerateWithRetry(ctx context.Context, a Adapter, model, prompt string, maxAttempts int, sleep func(time.Duration)) (*Response, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := a.Generate(ctx, model, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		backoff := generateBackoff(attempt)
		log.Printf("[adapter] %s failed (attempt %d/%d): %v; retrying in %s",
			a.Name(), attempt, maxAttempts, err, backoff)
		sleep(backoff)
	}
	return nil, lastErr
}

func generateBackoff(attempt int) time.Duration {
	backoff := time.Second << (attempt - 1)
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
