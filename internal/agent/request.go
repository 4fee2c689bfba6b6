package agent

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ngoclaw/agentcore/internal/protocol"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/internal/streaming"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

const (
	maxProviderRetries = 3
	retryBaseWait      = 500 * time.Millisecond
)

// turnResult is what one successful Request+Stream step produces.
type turnResult struct {
	Text      string
	ToolCalls []session.ToolCall
	Usage     Usage
}

// streamTurn performs one provider call and ingests its response, retrying
// 5xx provider errors with backoff (spec §7: up to 3) and retrying once on
// a transport failure that occurred before any token was received (spec
// §7: StreamError "if before first token, retry once; else end turn").
// onToken is called for every text delta as it arrives, live.
func (l *Loop) streamTurn(ctx context.Context, req protocol.Request, onToken func(string)) (turnResult, error) {
	body, err := l.Adapter.BuildRequestBody(req)
	if err != nil {
		return turnResult{}, err
	}

	streamRetried := false
	for httpAttempt := 0; ; httpAttempt++ {
		resp, err := l.doHTTP(ctx, body)
		if err != nil {
			if httpAttempt < maxProviderRetries {
				if !sleepBackoff(ctx, httpAttempt) {
					return turnResult{}, apperr.Cancelled("cancelled during provider retry backoff")
				}
				continue
			}
			return turnResult{}, apperr.Wrap(apperr.CodeProviderAPI, "provider request failed", err)
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if httpAttempt < maxProviderRetries {
				if !sleepBackoff(ctx, httpAttempt) {
					return turnResult{}, apperr.Cancelled("cancelled during provider retry backoff")
				}
				continue
			}
			return turnResult{}, apperr.New(apperr.CodeProviderAPI, "provider returned repeated server errors")
		}
		if resp.StatusCode >= 400 {
			errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return turnResult{}, apperr.New(apperr.CodeProviderAPI, "provider rejected request: "+string(errBody))
		}

		result, tokenSeen, streamErr := l.consumeStream(ctx, resp.Body, onToken)
		resp.Body.Close()
		if streamErr == nil {
			return result, nil
		}
		if !tokenSeen && !streamRetried {
			streamRetried = true
			continue
		}
		return turnResult{}, apperr.Wrap(apperr.CodeStream, "provider stream failed", streamErr)
	}
}

func (l *Loop) doHTTP(ctx context.Context, body []byte) (*http.Response, error) {
	endpoint := l.Adapter.Endpoint(l.BaseURL, l.Config.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range l.Adapter.Headers(l.APIKey) {
		httpReq.Header.Set(k, v)
	}
	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(httpReq)
}

// consumeStream drains one provider response body through the generic
// ingestor, forwarding text deltas live via onToken and reporting whether
// any token was seen before a possible stream error (used to decide
// retry eligibility).
func (l *Loop) consumeStream(ctx context.Context, body io.Reader, onToken func(string)) (turnResult, bool, error) {
	out := make(chan streaming.LLMChunk, 16)
	go streaming.Ingest(ctx, body, l.Adapter.NewEventParser(), out)

	// Ingest sends exactly one terminal chunk (ChunkError or ChunkDone) and
	// returns without closing out, so read until that terminal chunk rather
	// than ranging over the channel.
	var result turnResult
	tokenSeen := false
	for {
		chunk := <-out
		switch chunk.Kind {
		case streaming.ChunkToken:
			tokenSeen = true
			result.Text += chunk.Token
			if onToken != nil {
				onToken(chunk.Token)
			}
		case streaming.ChunkToolCalls:
			result.ToolCalls = chunk.ToolCalls
		case streaming.ChunkError:
			return result, tokenSeen, chunk.Err
		case streaming.ChunkDone:
			result.Usage = Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
			return result, tokenSeen, nil
		}
	}
}

func sleepBackoff(ctx context.Context, attempt int) bool {
	wait := retryBaseWait << attempt
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}
