package adapter

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response wraps a chat completion and optional usage data.
type Response struct {
	Content string `json:"content"`
	Adapter string `json:"adapter"`
	Model   string `json:"model"`
	Usage   *Usage `json:"usage,omitempty"`
}
