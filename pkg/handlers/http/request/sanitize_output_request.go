package request

type SanitizeOutputRequest struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}
