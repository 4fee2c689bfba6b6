// Package config holds the engine's recognized configuration options
// (spec §6: max_rounds, turn_timeout_secs, tool_timeout_secs,
// approval_policy, summary_trigger_ratio, output_reservation_ratio, model)
// and an optional hot-reloadable override file. Grounded on the teacher's
// internal/infrastructure/config (struct-tagged config with defaults) and
// internal/domain/service/config_watcher.go (a live-reloading wrapper
// around an AgentLoopConfig), generalized from the teacher's full gateway
// config (Telegram, database, heartbeat, memory, gRPC...) down to the
// narrow surface spec.md §6 actually names — the HTTP/desktop/credential
// layers those teacher fields configured are out of this module's scope.
package config

import (
	"os"
	"strconv"
	"strings"
)

// ApprovalPolicy mirrors the four string forms spec §6 allows in the
// on-disk/override config. Whitelist and AutoLoop carry their parameters
// inline (e.g. "whitelist:read_file,list_dir", "autoloop:3:20").
type ApprovalPolicy struct {
	Kind      string // manual | auto | whitelist | autoloop
	Whitelist []string
	MaxDepth  int
	MaxTools  int
}

// Config is the engine's recognized option set, spec §6's exact table.
type Config struct {
	Model                  string
	MaxRounds              int
	TurnTimeoutSecs        int
	ToolTimeoutSecs        int
	ApprovalPolicy         ApprovalPolicy
	SummaryTriggerRatio    float64
	OutputReservationRatio float64
}

// Defaults returns spec §6's stated defaults.
func Defaults() Config {
	return Config{
		MaxRounds:              50,
		TurnTimeoutSecs:        300,
		ToolTimeoutSecs:        60,
		ApprovalPolicy:         ApprovalPolicy{Kind: "manual"},
		SummaryTriggerRatio:    0.6,
		OutputReservationRatio: 0.25,
	}
}

// ParseApprovalPolicy decodes the spec's
// "manual|auto|whitelist[names]|autoloop{depth,max}" grammar, here spelled
// as colon-delimited tokens since it arrives as a flat env var or YAML
// scalar rather than a structured document.
func ParseApprovalPolicy(s string) ApprovalPolicy {
	parts := strings.Split(s, ":")
	switch parts[0] {
	case "whitelist":
		var names []string
		if len(parts) > 1 {
			names = strings.Split(parts[1], ",")
		}
		return ApprovalPolicy{Kind: "whitelist", Whitelist: names}
	case "autoloop":
		depth, maxTools := 3, 20
		if len(parts) > 1 {
			if d, err := strconv.Atoi(parts[1]); err == nil {
				depth = d
			}
		}
		if len(parts) > 2 {
			if m, err := strconv.Atoi(parts[2]); err == nil {
				maxTools = m
			}
		}
		return ApprovalPolicy{Kind: "autoloop", MaxDepth: depth, MaxTools: maxTools}
	case "auto":
		return ApprovalPolicy{Kind: "auto"}
	default:
		return ApprovalPolicy{Kind: "manual"}
	}
}

// FromEnv overlays process environment variables onto Defaults(), matching
// the CLI's env-var equivalents (spec §6): LLM_MODEL plus the engine
// options the teacher's AgentConfig exposed as top-level fields rather than
// under a provider-specific block.
func FromEnv() Config {
	cfg := Defaults()
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("AGENTCORE_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRounds = n
		}
	}
	if v := os.Getenv("AGENTCORE_TURN_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TurnTimeoutSecs = n
		}
	}
	if v := os.Getenv("AGENTCORE_TOOL_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ToolTimeoutSecs = n
		}
	}
	if v := os.Getenv("AGENTCORE_APPROVAL_POLICY"); v != "" {
		cfg.ApprovalPolicy = ParseApprovalPolicy(v)
	}
	return cfg
}
