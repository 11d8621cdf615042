package api

// CreateLabRequest is the body of POST /api/labs/create.
type CreateLabRequest struct {
	Prompt    string `json:"prompt"`
	DryRun    bool   `json:"dry_run"`
	EnableRCA bool   `json:"enable_rca"`
}

// PostMessageRequest is the body of POST /api/labs/:id/message.
type PostMessageRequest struct {
	Content string `json:"content"`
}
