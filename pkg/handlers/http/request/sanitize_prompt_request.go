package request

type SanitizePromptRequest struct {
	Text      string            `json:"text"`
	Context   map[string]string `json:"context,omitempty"`
	UserID    string            `json:"user_id"`
	MaxTokens int               `json:"max_tokens,omitempty"`
}
