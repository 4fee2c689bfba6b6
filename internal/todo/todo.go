// Package todo implements the checklist entity mutated by the
// create_todo_list / update_todo_item tools and rendered into the system
// prompt on every turn (spec §3, §4.9). The teacher has no analogue for
// this component; it is grounded on original_source/crates/agent-core's
// todo model, expressed in this repo's entity+service idiom (value type
// plus a small mutating service, matching the doc-comment density of
// internal/domain/tool/tool.go).
package todo

import (
	"fmt"
	"strings"
	"time"

	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// Status is the lifecycle state of one TodoItem.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// Item is one entry in a TodoList.
type Item struct {
	ID          string
	Description string
	Status      Status
	DependsOn   []string
	Notes       []string
}

// List is the checklist entity described in spec §3.
type List struct {
	SessionID string
	Title     string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an empty todo list for a session.
func New(sessionID, title string) *List {
	now := time.Now()
	return &List{SessionID: sessionID, Title: title, CreatedAt: now, UpdatedAt: now}
}

// indexOf returns the position of the item with the given id, or -1.
func (l *List) indexOf(id string) int {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem appends a new item, validating that every dependency already
// exists in the list and that adding it introduces no dependency cycle.
func (l *List) AddItem(id, description string, dependsOn []string) error {
	if l.indexOf(id) >= 0 {
		return apperr.InvalidArguments("todo item already exists: " + id)
	}
	for _, dep := range dependsOn {
		if l.indexOf(dep) < 0 {
			return apperr.InvalidArguments("unknown dependency: " + dep)
		}
	}
	l.Items = append(l.Items, Item{ID: id, Description: description, Status: StatusPending, DependsOn: dependsOn})
	if err := l.checkCycles(); err != nil {
		l.Items = l.Items[:len(l.Items)-1]
		return err
	}
	l.UpdatedAt = time.Now()
	return nil
}

// checkCycles rejects any dependency graph containing a cycle. The source
// implementation never enforced this (spec §9 Design Notes); SPEC_FULL.md
// mandates rejection.
func (l *List) checkCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(l.Items))
	byID := make(map[string]Item, len(l.Items))
	for _, it := range l.Items {
		byID[it.ID] = it
	}
	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return apperr.InvalidArguments("dependency cycle detected at item " + id)
		case black:
			return nil
		}
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	for _, it := range l.Items {
		if err := visit(it.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateItem mutates one item's status and/or appends a note. Per spec §4.9:
// an item may move to StatusInProgress only if all its dependencies are
// StatusCompleted; updates to a nonexistent id yield NotFound.
//
// Idempotence (spec §8): calling UpdateItem twice with the same status and
// the same note text does NOT dedupe the note — notes always concatenate.
// Idempotence only holds on the (id, status) pair, never on notes.
func (l *List) UpdateItem(id string, status Status, note string) error {
	idx := l.indexOf(id)
	if idx < 0 {
		return apperr.NotFound("todo item not found: " + id)
	}
	item := &l.Items[idx]
	if status != "" {
		if status == StatusInProgress {
			for _, dep := range item.DependsOn {
				depIdx := l.indexOf(dep)
				if depIdx < 0 || l.Items[depIdx].Status != StatusCompleted {
					return apperr.InvalidArguments(fmt.Sprintf(
						"item %s cannot move to in_progress: dependency %s is not completed", id, dep))
				}
			}
		}
		item.Status = status
	}
	if note != "" {
		item.Notes = append(item.Notes, note)
	}
	l.UpdatedAt = time.Now()
	return nil
}

// Progress returns (completed, total) item counts.
func (l *List) Progress() (int, int) {
	completed := 0
	for _, it := range l.Items {
		if it.Status == StatusCompleted {
			completed++
		}
	}
	return completed, len(l.Items)
}

func glyph(s Status) string {
	switch s {
	case StatusCompleted:
		return "[x]"
	case StatusInProgress:
		return "[~]"
	case StatusBlocked:
		return "[!]"
	default:
		return "[ ]"
	}
}

// Render produces the textual fragment appended to the system prompt on
// every turn so the model observes its own plan (spec §4.9): checkboxes,
// status glyphs, dependency hints, and an N/M progress counter.
func (l *List) Render() string {
	if l == nil || len(l.Items) == 0 {
		return ""
	}
	completed, total := l.Progress()
	var b strings.Builder
	fmt.Fprintf(&b, "Todo list: %s (%d/%d complete)\n", l.Title, completed, total)
	for _, it := range l.Items {
		fmt.Fprintf(&b, "%s %s: %s", glyph(it.Status), it.ID, it.Description)
		if len(it.DependsOn) > 0 {
			fmt.Fprintf(&b, " (depends on: %s)", strings.Join(it.DependsOn, ", "))
		}
		if len(it.Notes) > 0 {
			fmt.Fprintf(&b, " — notes: %s", strings.Join(it.Notes, "; "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
