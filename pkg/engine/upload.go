package engine

import (
	"fmt"

	"github.com/prajeetragavr/mcpagent/pkg/api"
)

// SummarizeToolName is the tool an uploaded document is steered toward.
const SummarizeToolName = "summarize_document"

// UploadInput renders an upload as the user message that opens its turn.
// The literal is typically a sandbox-relative path the file server wrote.
func UploadInput(tool, literal string) api.Message {
	return api.UserMessage(fmt.Sprintf("I want to use the '%s' tool with input: %s", tool, literal))
}
