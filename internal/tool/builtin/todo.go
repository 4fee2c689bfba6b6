package builtin

import (
	"context"
	"fmt"

	"github.com/ngoclaw/agentcore/internal/todo"
	"github.com/ngoclaw/agentcore/internal/tool"
)

// TodoStore is the narrow surface the todo tools need: get-or-create the
// one list for a session, replace it wholesale, and notify observers after
// each mutation so the agent loop can emit AgentEvent::TodoListUpdated
// (spec §4.9). *todo.Store satisfies this.
type TodoStore interface {
	GetOrCreate(sessionID, title string) *todo.List
	Replace(sessionID string, list *todo.List)
	OnUpdate(sessionID string, list *todo.List)
}

// CreateTodoListTool replaces the session's todo list with a fresh one
// built from the given item descriptions and dependency ids.
type CreateTodoListTool struct {
	Store     TodoStore
	SessionID string
}

func NewCreateTodoListTool(store TodoStore, sessionID string) *CreateTodoListTool {
	return &CreateTodoListTool{Store: store, SessionID: sessionID}
}

func (t *CreateTodoListTool) Name() string { return "create_todo_list" }
func (t *CreateTodoListTool) Description() string {
	return "Create (or replace) the session's todo list from a set of items."
}
func (t *CreateTodoListTool) Kind() tool.Kind { return tool.KindThink }
func (t *CreateTodoListTool) Schema() map[string]any {
	return schema(map[string]any{
		"title": strProp("short title for the plan"),
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":          strProp("short stable identifier for this item"),
					"description": strProp("what needs to be done"),
					"depends_on": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"id", "description"},
			},
		},
	}, "title", "items")
}

func (t *CreateTodoListTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	title := argStr(args, "title")
	raw, _ := args["items"].([]any)
	list := todo.New(t.SessionID, title)
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		id := argStr(m, "id")
		desc := argStr(m, "description")
		var deps []string
		if depRaw, ok := m["depends_on"].([]any); ok {
			for _, d := range depRaw {
				if s, ok := d.(string); ok {
					deps = append(deps, s)
				}
			}
		}
		if err := list.AddItem(id, desc, deps); err != nil {
			return &tool.Result{Success: false, Error: err.Error()}, nil
		}
	}
	t.Store.Replace(t.SessionID, list)
	t.Store.OnUpdate(t.SessionID, list)
	return &tool.Result{Output: list.Render(), Success: true}, nil
}

// UpdateTodoItemTool mutates one item's status and/or appends a note.
type UpdateTodoItemTool struct {
	Store     TodoStore
	SessionID string
}

func NewUpdateTodoItemTool(store TodoStore, sessionID string) *UpdateTodoItemTool {
	return &UpdateTodoItemTool{Store: store, SessionID: sessionID}
}

func (t *UpdateTodoItemTool) Name() string { return "update_todo_item" }
func (t *UpdateTodoItemTool) Description() string {
	return "Update a todo item's status and/or append a progress note."
}
func (t *UpdateTodoItemTool) Kind() tool.Kind { return tool.KindThink }
func (t *UpdateTodoItemTool) Schema() map[string]any {
	return schema(map[string]any{
		"id":     strProp("the item id to update"),
		"status": strProp("one of pending, in_progress, completed, blocked (optional)"),
		"note":   strProp("progress note to append (optional)"),
	}, "id")
}

func (t *UpdateTodoItemTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	list := t.Store.GetOrCreate(t.SessionID, "")
	id := argStr(args, "id")
	status := todo.Status(argStr(args, "status"))
	note := argStr(args, "note")
	if err := list.UpdateItem(id, status, note); err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	t.Store.OnUpdate(t.SessionID, list)
	completed, total := list.Progress()
	return &tool.Result{
		Output:  fmt.Sprintf("updated %s (%d/%d complete)\n%s", id, completed, total, list.Render()),
		Success: true,
	}, nil
}
