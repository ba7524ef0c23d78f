package language

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zen-systems/dialogate/pkg/invoke"
)

const defaultAPIVersion = "2024-11-01"

// Client calls the language service: detection, PII recognition,
// conversation analysis, QA query, and authoring export. Every call
// goes through the resilient invoker.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	inv        *invoke.Invoker
	policy     invoke.RetryPolicy
	async      invoke.AsyncOptions
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithInvoker sets the invoker used for all calls.
func WithInvoker(inv *invoke.Invoker) ClientOption {
	return func(c *Client) {
		c.inv = inv
	}
}

// WithRetryPolicy sets the retry policy for all calls.
func WithRetryPolicy(policy invoke.RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithAsyncOptions sets the poll interval and timeout for async jobs.
func WithAsyncOptions(opts invoke.AsyncOptions) ClientOption {
	return func(c *Client) {
		c.async = opts
	}
}

// WithAPIVersion overrides the service api-version.
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// NewClient creates a language service client.
func NewClient(endpoint, apiKey string, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("language endpoint is required")
	}

	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiVersion: defaultAPIVersion,
		inv:        invoke.NewInvoker(),
		policy:     invoke.RetryPolicy{MaxRetries: 3, MaxWaitSeconds: 30},
		async: invoke.AsyncOptions{
			PollInterval: 5 * time.Second,
			Timeout:      60 * time.Second,
			Poll:         true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Ocp-Apim-Subscription-Key": c.apiKey,
		"Content-Type":              "application/json",
	}
}

func (c *Client) query(extra url.Values) url.Values {
	q := url.Values{"api-version": []string{c.apiVersion}}
	for key, values := range extra {
		for _, value := range values {
			q.Add(key, value)
		}
	}
	return q
}

// post runs a synchronous call and returns the raw body. A 202 with no
// inline result yields nil: the job was submitted but nothing came back.
func (c *Client) post(ctx context.Context, path string, body any, extra url.Values) (json.RawMessage, error) {
	resp, err := c.inv.Do(ctx, invoke.Request{
		Method:  http.MethodPost,
		URL:     c.endpoint + path,
		Headers: c.headers(),
		Query:   c.query(extra),
		Body:    body,
	}, c.policy)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusAccepted {
		return nil, nil
	}
	return json.RawMessage(resp.Body), nil
}

// DetectLanguage returns the primary language code of a document.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	raw, err := c.post(ctx, "/text/detect-language", detectRequest{Document: text}, nil)
	if err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}

	var out detectResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode detect-language response: %w", err)
	}
	if out.PrimaryLanguageCode == "" {
		return "", fmt.Errorf("detect-language response missing primaryLanguageCode")
	}
	return out.PrimaryLanguageCode, nil
}

// RecognizePII returns the sensitive entities detected in a document.
func (c *Client) RecognizePII(ctx context.Context, text, lang string) (*PIIResult, error) {
	raw, err := c.post(ctx, "/text/recognize-pii", piiRequest{Document: text, Language: lang}, nil)
	if err != nil {
		return nil, fmt.Errorf("recognize pii: %w", err)
	}

	var out PIIResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode recognize-pii response: %w", err)
	}
	return &out, nil
}

// AnalyzeConversation submits an utterance to the CLU or orchestration
// runtime and returns the raw response for the route parsers.
func (c *Client) AnalyzeConversation(ctx context.Context, task ConversationTask) (json.RawMessage, error) {
	raw, err := c.post(ctx, "/conversations/analyze", task, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze conversation: %w", err)
	}
	return raw, nil
}

// GetAnswers queries the QA runtime for the top-ranked answers.
func (c *Client) GetAnswers(ctx context.Context, project, deployment, question string, top int) (json.RawMessage, error) {
	extra := url.Values{
		"projectName":    []string{project},
		"deploymentName": []string{deployment},
	}
	raw, err := c.post(ctx, "/qna/query", qnaRequest{Question: question, Top: top}, extra)
	if err != nil {
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}
	return raw, nil
}

// ExportProject runs an authoring export job to completion and fetches
// the exported project from its result URL. kind selects the authoring
// surface ("conversations" or "qna").
func (c *Client) ExportProject(ctx context.Context, kind, project string) (json.RawMessage, error) {
	req := invoke.Request{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/authoring/%s/projects/%s/export", c.endpoint, kind, project),
		Headers: c.headers(),
		Query:   c.query(nil),
	}

	// The export flow always needs the terminal job body, so polling is
	// forced on even when the client was configured fire-and-forget.
	opts := c.async
	opts.Poll = true
	result, err := c.inv.DoAsync(ctx, req, c.policy, opts)
	if err != nil {
		return nil, fmt.Errorf("export project %s: %w", project, err)
	}

	var status exportStatus
	if err := result.Response.JSON(&status); err != nil {
		return nil, fmt.Errorf("decode export status: %w", err)
	}
	if status.Status != invoke.StatusSucceeded {
		return nil, fmt.Errorf("export project %s: job %s", project, status.Status)
	}
	if status.ResultURL == "" {
		return nil, fmt.Errorf("export project %s: missing resultUrl", project)
	}

	resp, err := c.inv.Do(ctx, invoke.Request{
		Method:  http.MethodGet,
		URL:     status.ResultURL,
		Headers: c.headers(),
	}, c.policy)
	if err != nil {
		return nil, fmt.Errorf("fetch export result: %w", err)
	}
	return json.RawMessage(resp.Body), nil
}
