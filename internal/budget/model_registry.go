package budget

import "strings"

// Limits is a model's context window and its reserved output allowance.
type Limits struct {
	Window         int
	ReservedOutput int
}

// InputBudget is the usable input budget: window minus reserved output.
func (l Limits) InputBudget() int {
	b := l.Window - l.ReservedOutput
	if b < 0 {
		return 0
	}
	return b
}

// defaultLimits is a small built-in model-name → limits registry, matched
// by substring against the model id (same matching style as the teacher's
// ModelPolicy.ResolveModelPolicy). Unknown models fall back to a
// conservative default.
var defaultLimits = []struct {
	substr string
	limits Limits
}{
	{"gpt-4o", Limits{Window: 128_000, ReservedOutput: 16_000}},
	{"gpt-4", Limits{Window: 128_000, ReservedOutput: 8_000}},
	{"gpt-3.5", Limits{Window: 16_000, ReservedOutput: 4_000}},
	{"o1", Limits{Window: 200_000, ReservedOutput: 32_000}},
	{"claude-3-5", Limits{Window: 200_000, ReservedOutput: 16_000}},
	{"claude-3", Limits{Window: 200_000, ReservedOutput: 16_000}},
	{"claude", Limits{Window: 200_000, ReservedOutput: 16_000}},
	{"gemini-1.5", Limits{Window: 1_000_000, ReservedOutput: 32_000}},
	{"gemini", Limits{Window: 1_000_000, ReservedOutput: 32_000}},
}

var fallbackLimits = Limits{Window: 128_000, ReservedOutput: 16_000}

// Registry resolves per-model token limits, overridable per deployment.
type Registry struct {
	overrides map[string]Limits

	// ReservedOutputRatio, when set (> 0), overrides every resolved Limits'
	// ReservedOutput with ratio*Window instead of the built-in per-model
	// table, wired from internal/config.Config.OutputReservationRatio
	// (spec §6). Exact per-model overrides installed via SetLimits still
	// take this ratio over their own ReservedOutput, since a caller setting
	// the ratio explicitly asked for it to govern every model uniformly.
	ReservedOutputRatio float64
}

// NewRegistry creates a registry with no overrides; Resolve falls back to
// the built-in substring table.
func NewRegistry() *Registry {
	return &Registry{overrides: make(map[string]Limits)}
}

// SetLimits installs an explicit override for an exact model id.
func (r *Registry) SetLimits(model string, l Limits) {
	r.overrides[model] = l
}

// Resolve returns the limits for a model name, preferring an exact
// override, then the longest matching substring, then the fallback.
func (r *Registry) Resolve(model string) Limits {
	result, ok := r.overrides[model]
	if !ok {
		lower := strings.ToLower(model)
		best := -1
		found := false
		for _, entry := range defaultLimits {
			if strings.Contains(lower, entry.substr) && len(entry.substr) > best {
				best = len(entry.substr)
				result = entry.limits
				found = true
			}
		}
		if !found {
			result = fallbackLimits
		}
	}
	if r.ReservedOutputRatio > 0 {
		result.ReservedOutput = int(r.ReservedOutputRatio * float64(result.Window))
	}
	return result
}
