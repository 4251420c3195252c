package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role tags the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleFunction  Role = "function"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleFunction:
		return true
	}
	return false
}

// Turn is one immutable exchange unit of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// FunctionName is set on function-result turns.
	FunctionName string `json:"function_name,omitempty"`
	// FunctionCall is set on assistant turns that requested a function call.
	FunctionCall *FunctionCallRequest `json:"function_call,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// NewTurn builds a turn stamped with the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

// FunctionResultTurn builds the function-result turn answering call.
func FunctionResultTurn(call FunctionCallRequest, content string) Turn {
	t := NewTurn(RoleFunction, content)
	t.FunctionName = call.Name
	t.FunctionCall = &FunctionCallRequest{ID: call.ID, Name: call.Name}
	return t
}

// FormatTranscript renders turns as "role: content" lines for prompt templates.
func FormatTranscript(turns []Turn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %s", t.Role, t.Content)
	}
	return sb.String()
}
