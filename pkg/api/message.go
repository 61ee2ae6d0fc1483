package api

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a thread's ordered, append-only log. Assistant
// messages may carry tool calls; tool messages carry the call id they
// answer. Messages are never rewritten after they are appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls holds the tool invocations an assistant message requested.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool observation back to the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a reasoning engine's request to invoke a named tool.
type ToolCall struct {
	// ID is the engine-assigned call identifier.
	ID string `json:"id"`

	// Name is the tool name as listed in the capability catalog.
	Name string `json:"name"`

	// Arguments is the JSON-encoded argument map.
	Arguments string `json:"arguments"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool observation message for the given call id.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}
