package streaming

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// SSEEvent is one framed server-sent event: an optional "event:" name and
// its "data:" payload, terminated by a blank line (spec §4.6).
type SSEEvent struct {
	Event string
	Data  string
}

// IdleTimeout bounds how long the framer will wait for the next byte
// before treating the connection as stalled, grounded on the teacher's
// timedReader (internal/infrastructure/llm/{openai,anthropic,gemini}/sse.go).
const IdleTimeout = 60 * time.Second

var errIdleTimeout = fmt.Errorf("sse read idle timeout")

// timedReader applies a per-Read deadline so a stalled HTTP connection
// surfaces as an error instead of hanging the ingestor forever.
type timedReader struct {
	r       io.Reader
	timeout time.Duration
}

func (t *timedReader) Read(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := t.r.Read(p)
		ch <- result{n, err}
	}()
	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(t.timeout):
		return 0, errIdleTimeout
	}
}

// IsIdleTimeout reports whether err is the idle-timeout sentinel.
func IsIdleTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "sse read idle timeout")
}

// ScanSSE frames raw SSE bytes into events and invokes handle for each one.
// handle returns stop=true to end scanning early (e.g. on "[DONE]").
// This is the provider-agnostic half of the Stream Ingestor (spec §4.6);
// provider-specific interpretation of event/data belongs to
// internal/protocol's adapters.
func ScanSSE(r io.Reader, handle func(SSEEvent) (stop bool, err error)) error {
	tr := &timedReader{r: r, timeout: IdleTimeout}
	scanner := bufio.NewScanner(tr)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cur SSEEvent
	flush := func() (bool, error) {
		if cur.Data == "" && cur.Event == "" {
			return false, nil
		}
		ev := cur
		cur = SSEEvent{}
		return handle(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if stop, err := flush(); stop || err != nil {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			cur.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(line, "data:")
			data = strings.TrimPrefix(data, " ")
			if cur.Data != "" {
				cur.Data += "\n" + data
			} else {
				cur.Data = data
			}
		default:
			// Ignore id:/retry:/comment lines — not used by any spoke here.
		}
	}
	if _, err := flush(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}
