package builtin

import (
	"context"

	"github.com/ngoclaw/agentcore/internal/tool"
)

// AskFunc delivers a question to whatever surface the host process uses to
// reach the human (CLI prompt, TUI, chat transport) and returns their reply.
type AskFunc func(ctx context.Context, question string) (string, error)

// AskUserTool pauses the loop to ask the human a clarifying question. Its
// Kind, KindInteract, is not in tool.SafeKinds, so the permission gate
// treats it like any other non-read tool: it runs under AutoApprove and
// within AutoLoop's bounds, and is suspended for approval under Manual and under a
// Whitelist that does not list it.
type AskUserTool struct {
	Ask AskFunc
}

func NewAskUserTool(ask AskFunc) *AskUserTool { return &AskUserTool{Ask: ask} }

func (t *AskUserTool) Name() string        { return "ask_user" }
func (t *AskUserTool) Description() string { return "Ask the user a clarifying question and wait for their reply." }
func (t *AskUserTool) Kind() tool.Kind     { return tool.KindInteract }
func (t *AskUserTool) Schema() map[string]any {
	return schema(map[string]any{"question": strProp("the question to ask")}, "question")
}

func (t *AskUserTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	reply, err := t.Ask(ctx, argStr(args, "question"))
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: reply, Success: true}, nil
}
