// Package session implements the append-only conversation graph: messages,
// sessions, and branches (spec §3, §4.1).
package session

import (
	"sync"
	"time"

	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// Session is the persistent record of a conversation: an ordered list of
// messages plus metadata. The agent loop borrows a mutable view of the
// active session for the duration of one turn; ownership and exclusivity
// across turns is enforced by the runner registry (internal/runner), not
// here.
type Session struct {
	mu        sync.RWMutex
	id        string
	messages  []*Message
	createdAt time.Time
	updatedAt time.Time

	// parentID/depth support sub-sessions (SPEC_FULL §4): a sub-session is a
	// first-class Session whose results are folded back to the parent as a
	// synthetic Tool observation.
	parentID string
	depth    int
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{id: id, createdAt: now, updatedAt: now}
}

// NewSubSession creates a session with a parent pointer and a depth one
// greater than its parent's, for the nested-context model described in
// SPEC_FULL §4.
func NewSubSession(id string, parent *Session) *Session {
	s := New(id)
	s.parentID = parent.ID()
	s.depth = parent.Depth() + 1
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) ParentID() string { return s.parentID }

func (s *Session) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depth
}

func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// AppendMessage appends one message and bumps the update timestamp.
func (s *Session) AppendMessage(m *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	s.updatedAt = time.Now()
}

// Messages returns a snapshot copy of the full message history.
func (s *Session) Messages() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastN returns a copy of the last n messages (or all of them if there are
// fewer than n).
func (s *Session) LastN(n int) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n >= len(s.messages) {
		out := make([]*Message, len(s.messages))
		copy(out, s.messages)
		return out
	}
	start := len(s.messages) - n
	out := make([]*Message, n)
	copy(out, s.messages[start:])
	return out
}

// indexOf finds the position of a message by ID. Caller must hold s.mu.
func (s *Session) indexOf(id string) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Fork creates a new Session sharing the message prefix up to and including
// atMessageID. New appends go to the fork; the original session is
// untouched. Fails with InvalidBranch if atMessageID is not a message in
// this session.
func (s *Session) Fork(forkID string, atMessageID string) (*Session, error) {
	s.mu.RLock()
	idx := s.indexOf(atMessageID)
	if idx < 0 {
		s.mu.RUnlock()
		return nil, apperr.InvalidBranch("fork point not found in session: " + atMessageID)
	}
	prefix := make([]*Message, idx+1)
	copy(prefix, s.messages[:idx+1])
	s.mu.RUnlock()

	now := time.Now()
	return &Session{
		id:        forkID,
		messages:  prefix,
		createdAt: now,
		updatedAt: now,
		parentID:  s.parentID,
		depth:     s.depth,
	}, nil
}

// ReplaceTailFrom truncates the session at id (exclusive) and drops
// everything from id onward, so a caller can re-append a corrected tail.
// Fails with InvalidBranch if id is not present.
func (s *Session) ReplaceTailFrom(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return apperr.InvalidBranch("replace point not found in session: " + id)
	}
	s.messages = s.messages[:idx]
	s.updatedAt = time.Now()
	return nil
}

// Len returns the number of messages in the session.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// ValidateNoOrphanToolResults checks the invariant that every Tool message
// references a call_id present in an earlier Assistant.ToolCalls.
func (s *Session) ValidateNoOrphanToolResults() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	known := make(map[string]bool)
	for _, m := range s.messages {
		if m.Role == RoleAssistant {
			for _, tc := range m.ToolCalls {
				known[tc.ID] = true
			}
		}
		if m.Role == RoleTool {
			if !known[m.CallID] {
				return apperr.InvalidArguments("orphan tool result for call_id " + m.CallID)
			}
		}
	}
	return nil
}
