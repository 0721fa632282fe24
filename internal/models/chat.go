package models

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// WSFrame is a server-to-client frame on the websocket relay.
type WSFrame struct {
	Type    string `json:"type"` // "chunk", "done" or "error"
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	FrameChunk = "chunk"
	FrameDone  = "done"
	FrameError = "error"
)
