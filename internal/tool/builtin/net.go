package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ngoclaw/agentcore/internal/tool"
)

// HTTPRequestTool issues an outbound HTTP request on the model's behalf.
type HTTPRequestTool struct {
	Client  *http.Client
	MaxBody int
}

func NewHTTPRequestTool() *HTTPRequestTool {
	return &HTTPRequestTool{Client: &http.Client{Timeout: 30 * time.Second}, MaxBody: 50_000}
}

func (t *HTTPRequestTool) Name() string        { return "http_request" }
func (t *HTTPRequestTool) Description() string { return "Issue an HTTP request and return its body." }
func (t *HTTPRequestTool) Kind() tool.Kind     { return tool.KindFetch }
func (t *HTTPRequestTool) Schema() map[string]any {
	return schema(map[string]any{
		"url":    strProp("the URL to request"),
		"method": strProp("HTTP method, defaults to GET"),
		"body":   strProp("request body (optional)"),
	}, "url")
}

func (t *HTTPRequestTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	url := argStr(args, "url")
	method := argStr(args, "method")
	if method == "" {
		method = "GET"
	}
	var body io.Reader
	if b := argStr(args, "body"); b != "" {
		body = strings.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.MaxBody)+1))
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	out := string(data)
	if len(data) > t.MaxBody {
		out = out[:t.MaxBody] + "...[truncated]"
	}
	success := resp.StatusCode < 400
	result := &tool.Result{
		Output:   out,
		Success:  success,
		Metadata: map[string]any{"status_code": resp.StatusCode},
	}
	if !success {
		result.Error = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return result, nil
}
