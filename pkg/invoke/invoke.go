package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"
)

// Request describes a single HTTP call. A Request is built fresh per
// invocation and never mutated after construction; the underlying
// http.Client is the only thing shared across retries.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values
	// Body is marshaled to JSON once, before the first attempt.
	Body any
}

// RetryPolicy bounds the retry loop of an Invoker.
//
// The wait before the n-th retry (1-indexed) is
// maxWaitSeconds ^ (n / maxRetries) seconds. No wait is performed
// before the first attempt.
type RetryPolicy struct {
	MaxRetries     int
	MaxWaitSeconds int
}

// Backoff returns the wait duration before the given retry.
// retry counts the attempts already performed, so the first retry
// uses exponent 1/MaxRetries.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if p.MaxRetries <= 0 || p.MaxWaitSeconds <= 0 {
		return 0
	}
	seconds := math.Pow(float64(p.MaxWaitSeconds), float64(retry)/float64(p.MaxRetries))
	return time.Duration(seconds * float64(time.Second))
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

// Invoker executes HTTP requests with bounded exponential-backoff retry.
type Invoker struct {
	client *http.Client
	sleep  func(time.Duration)
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) InvokerOption {
	return func(inv *Invoker) {
		inv.client = c
	}
}

// WithSleep overrides the sleep function used between retries.
func WithSleep(sleep func(time.Duration)) InvokerOption {
	return func(inv *Invoker) {
		inv.sleep = sleep
	}
}

// NewInvoker creates an Invoker with connection pooling enabled.
func NewInvoker(opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		client: &http.Client{},
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Do executes the request, retrying transient failures up to the policy
// bound. A status below 400 is the only success exit. Transport errors,
// 408, 429, and 5xx statuses are retried; other 4xx statuses fail
// immediately since a repeat of the same request cannot succeed. On
// exhaustion the last response's status and body are surfaced in an
// ExhaustedRetriesError.
func (inv *Invoker) Do(ctx context.Context, req Request, policy RetryPolicy) (*Response, error) {
	body, err := marshalBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	var last *Response
	var lastErr error

	retries := 0
	for retries < policy.MaxRetries {
		if retries != 0 {
			log.Printf("[invoke] HTTP failure; retrying...")
			inv.sleep(policy.Backoff(retries))
		}

		resp, err := inv.send(ctx, req, body)
		retries++
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[invoke] transport error: %v", err)
			lastErr = err
			continue
		}

		log.Printf("[invoke] status code: %d", resp.StatusCode)
		if resp.StatusCode < 400 {
			return resp, nil
		}

		last = resp
		lastErr = nil
		if !retryableStatus(resp.StatusCode) {
			break
		}
	}

	if retries == policy.MaxRetries {
		log.Printf("[invoke] maximum number of retries reached")
	}
	exhausted := &ExhaustedRetriesError{Transport: lastErr, Attempts: retries}
	if last != nil {
		exhausted.Status = last.StatusCode
		exhausted.Body = last.Body
		log.Printf("[invoke] response: %s", last.Body)
	}
	return nil, exhausted
}

func (inv *Invoker) send(ctx context.Context, req Request, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for key, values := range req.Query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpResp, err := inv.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// retryableStatus reports whether an HTTP error status is worth retrying.
// Client errors other than timeouts and throttling are deterministic.
func retryableStatus(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(body)
}
