package invoke

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Terminal job statuses. Both stop polling; the caller inspects the
// body to tell success from failure.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// operationLocationHeader references the status resource of a
// long-running job accepted with 202.
const operationLocationHeader = "Operation-Location"

// AsyncOptions configures the polling loop of DoAsync.
type AsyncOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
	// Poll disabled hands ownership of the job to the caller: DoAsync
	// returns the status URL without blocking.
	Poll bool
}

// AsyncResult is the outcome of an async submission. Response is nil
// when polling was disabled; StatusURL is always set.
type AsyncResult struct {
	StatusURL string
	Response  *Response
}

// Submit fires the initial request of a long-running job and returns
// the status URL from the Operation-Location header.
func (inv *Invoker) Submit(ctx context.Context, req Request, policy RetryPolicy) (string, error) {
	resp, err := inv.Do(ctx, req, policy)
	if err != nil {
		return "", err
	}

	statusURL := resp.Header.Get(operationLocationHeader)
	if statusURL == "" {
		return "", fmt.Errorf("missing %s header in async response", operationLocationHeader)
	}
	return statusURL, nil
}

// Await polls a status resource until it reaches a terminal status or
// the timeout elapses. Individual poll failures are swallowed and the
// poll is retried on the next iteration.
func (inv *Invoker) Await(ctx context.Context, statusURL string, headers map[string]string, policy RetryPolicy, opts AsyncOptions) (*Response, error) {
	start := time.Now()
	for {
		if elapsed := time.Since(start); elapsed > opts.Timeout {
			return nil, &AsyncTimeoutError{StatusURL: statusURL, Elapsed: elapsed}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := inv.Do(ctx, Request{
			Method:  http.MethodGet,
			URL:     statusURL,
			Headers: headers,
		}, policy)
		if err == nil {
			var body struct {
				Status string `json:"status"`
			}
			if decodeErr := resp.JSON(&body); decodeErr == nil {
				if body.Status == StatusSucceeded || body.Status == StatusFailed {
					return resp, nil
				}
			}
		} else {
			log.Printf("[invoke] poll failed, will retry: %v", err)
		}

		inv.sleep(opts.PollInterval)
	}
}

// DoAsync submits a long-running job and, unless polling is disabled,
// blocks until the job reaches a terminal status.
func (inv *Invoker) DoAsync(ctx context.Context, req Request, policy RetryPolicy, opts AsyncOptions) (*AsyncResult, error) {
	statusURL, err := inv.Submit(ctx, req, policy)
	if err != nil {
		return nil, err
	}

	if !opts.Poll {
		return &AsyncResult{StatusURL: statusURL}, nil
	}

	resp, err := inv.Await(ctx, statusURL, req.Headers, policy, opts)
	if err != nil {
		return nil, err
	}
	return &AsyncResult{StatusURL: statusURL, Response: resp}, nil
}
