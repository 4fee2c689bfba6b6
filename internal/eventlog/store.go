// Package eventlog implements the durable per-session event log and
// snapshot storage described in spec §4.11 and §6: a `{session_id}.json`
// full snapshot rewritten after each turn, and a `{session_id}.jsonl`
// append-only event stream. Grounded on
// internal/infrastructure/eventbus.PersistentBus's write-ahead-log
// discipline (O_APPEND writer, one JSON object per line),
// generalized from one process-wide WAL file to one file pair per session.
package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ngoclaw/agentcore/internal/agent"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// Snapshot is the `{session_id}.json` artifact: a full reconstruction of a
// session's state, sufficient to resume without replaying the event log.
type Snapshot struct {
	SessionID string             `json:"session_id"`
	Messages  []*session.Message `json:"messages"`
	ParentID  string             `json:"parent_id,omitempty"`
	Depth     int                `json:"depth"`
}

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)

// ValidateSessionID enforces spec §6: session_id is an opaque non-empty
// string excluding path separators and "..".
func ValidateSessionID(id string) error {
	if id == "" {
		return apperr.InvalidArguments("session id must not be empty")
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return apperr.InvalidArguments("session id must not contain path separators or \"..\": " + id)
	}
	if !validSessionID.MatchString(id) {
		return apperr.InvalidArguments("session id contains unsafe characters: " + id)
	}
	return nil
}

// Store manages the two on-disk artifacts for every session under one data
// directory. Writes are fsync-free but append-only; event lines are
// serialized under one store-wide mutex so concurrent appends never
// interleave (spec §4.11).
type Store struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	writers map[string]*os.File
}

func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Storage("create event log directory", err)
	}
	return &Store{dir: dir, logger: logger, writers: make(map[string]*os.File)}, nil
}

func (s *Store) snapshotPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *Store) logPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".jsonl")
}

// WriteSnapshot rewrites the full session snapshot. Per spec §7: snapshot
// write failures are fatal to the turn.
func (s *Store) WriteSnapshot(snap Snapshot) error {
	if err := ValidateSessionID(snap.SessionID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return apperr.Storage("marshal snapshot", err)
	}
	tmp := s.snapshotPath(snap.SessionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Storage("write snapshot", err)
	}
	if err := os.Rename(tmp, s.snapshotPath(snap.SessionID)); err != nil {
		return apperr.Storage("commit snapshot", err)
	}
	return nil
}

// ReadSnapshot loads the session snapshot, if present.
func (s *Store) ReadSnapshot(sessionID string) (*Snapshot, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.snapshotPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Storage("read snapshot", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperr.Storage("unmarshal snapshot", err)
	}
	return &snap, nil
}

func (s *Store) writerFor(sessionID string) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.writers[sessionID]; ok {
		return f, nil
	}
	f, err := os.OpenFile(s.logPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperr.Storage("open event log", err)
	}
	s.writers[sessionID] = f
	return f, nil
}

// AppendEvent appends one event as a single JSON line. Per spec §7,
// event-append failures are warnings, not fatal to the turn — callers
// should log and continue rather than abort.
func (s *Store) AppendEvent(sessionID string, ev agent.Event) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return apperr.Storage("marshal event", err)
	}
	f, err := s.writerFor(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return apperr.Storage("append event", err)
	}
	return nil
}

// ReplayEvents reads every well-formed event line for a session. Malformed
// lines are skipped with a warning (spec §6) rather than aborting replay.
func (s *Store) ReplayEvents(sessionID string) ([]agent.Event, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	f, err := os.Open(s.logPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Storage("open event log for replay", err)
	}
	defer f.Close()

	var events []agent.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytesTrim(line)) == 0 {
			continue
		}
		var ev agent.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping malformed event log line", zap.String("session_id", sessionID), zap.Error(err))
			}
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, apperr.Storage("scan event log", err)
	}
	return events, nil
}

func bytesTrim(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	for j > i && (b[j-1] == ' ' || b[j-1] == '\t' || b[j-1] == '\r') {
		j--
	}
	return b[i:j]
}

// Close closes every open per-session writer.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for id, f := range s.writers {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = apperr.Storage("close event log for "+id, err)
		}
	}
	s.writers = make(map[string]*os.File)
	return firstErr
}
