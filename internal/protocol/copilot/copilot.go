// Package copilot implements a Copilot-style provider spoke (SPEC_FULL
// §10): spec.md's CLI surface already lists --provider copilot but the
// body of spec.md never describes its wire format. Copilot's chat
// completion shape is OpenAI-compatible, so this spoke delegates request
// building and stream parsing to protocol/openai and only adds the
// device-code OAuth bootstrap, grounded on
// original_source/crates/agent-llm/src/providers/copilot/auth/device_code.rs.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ngoclaw/agentcore/internal/protocol"
	"github.com/ngoclaw/agentcore/internal/protocol/openai"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

func init() {
	protocol.Register(Adapter{})
}

// Adapter reuses openai.Adapter's wire encoding entirely; only Name and
// Headers diverge (Copilot expects a bearer token obtained via device-code
// auth rather than a static API key, and a couple of Copilot-specific
// headers the upstream gateway requires).
type Adapter struct {
	openai.Adapter
}

func (Adapter) Name() string { return "copilot" }

func (Adapter) Headers(apiKey string) map[string]string {
	return map[string]string{
		"Authorization":       "Bearer " + apiKey,
		"Content-Type":        "application/json",
		"Copilot-Integration": "agentcore",
	}
}

// --- device-code OAuth bootstrap ---

const githubClientID = "Iv1.b507a08c87ecfe98"

// deviceCodeURL and tokenURL are vars rather than consts so tests can point
// the device-code flow at a local httptest server.
var (
	deviceCodeURL = "https://github.com/login/device/code"
	tokenURL      = "https://github.com/login/oauth/access_token"
)

// DeviceCodeResponse is GitHub's response to the device-code request.
type DeviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// RequestDeviceCode starts the device-code flow: the caller (the CLI) is
// expected to display VerificationURI/UserCode to the user before calling
// PollForToken.
func RequestDeviceCode(ctx context.Context, client *http.Client) (*DeviceCodeResponse, error) {
	form := url.Values{"client_id": {githubClientID}, "scope": {"read:user"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deviceCodeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProviderAPI, "build device code request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "agentcore/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProviderAPI, "request device code", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, apperr.New(apperr.CodeProviderAPI, fmt.Sprintf("device code request failed: HTTP %d - %s", resp.StatusCode, body))
	}
	var dc DeviceCodeResponse
	if err := json.Unmarshal(body, &dc); err != nil {
		return nil, apperr.Wrap(apperr.CodeProviderAPI, "parse device code response", err)
	}
	return &dc, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

// PollForToken polls GitHub's token endpoint at dc.Interval until the user
// authorizes the device code, it expires, or ctx is cancelled.
func PollForToken(ctx context.Context, client *http.Client, dc *DeviceCodeResponse) (string, error) {
	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(dc.ExpiresIn) * time.Second)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", apperr.Cancelled("device code polling cancelled")
		case <-time.After(interval):
		}

		form := url.Values{
			"client_id":   {githubClientID},
			"device_code": {dc.DeviceCode},
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return "", apperr.Wrap(apperr.CodeProviderAPI, "build token poll request", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err != nil {
			return "", apperr.Wrap(apperr.CodeProviderAPI, "poll for token", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			continue
		}
		switch tr.Error {
		case "":
			if tr.AccessToken != "" {
				return tr.AccessToken, nil
			}
		case "authorization_pending":
			continue
		case "slow_down":
			interval += 5 * time.Second
		default:
			return "", apperr.New(apperr.CodeProviderAPI, "device code authorization failed: "+tr.Error)
		}
	}
	return "", apperr.New(apperr.CodeProviderAPI, "device code expired before authorization")
}
