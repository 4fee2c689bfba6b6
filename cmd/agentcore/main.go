// Command agentcore is the reference runner for the engine: a cobra CLI
// that wires one session, one provider, and the full tool/permission/
// budget/event-log stack, then drives turns either over stdin/stdout or a
// minimal HTTP/SSE bridge. Grounded on the teacher's cmd/cli/main.go
// (cobra root command, logger-then-config-then-app wiring order,
// SIGINT/SIGTERM shutdown) and internal/interfaces/cli/app.go, trimmed
// from the teacher's full gateway (Telegram, gRPC, Postgres) down to
// spec.md §6's exact CLI surface.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngoclaw/agentcore/internal/agent"
	"github.com/ngoclaw/agentcore/internal/budget"
	"github.com/ngoclaw/agentcore/internal/config"
	"github.com/ngoclaw/agentcore/internal/eventlog"
	"github.com/ngoclaw/agentcore/internal/logging"
	"github.com/ngoclaw/agentcore/internal/permission"
	"github.com/ngoclaw/agentcore/internal/protocol"
	_ "github.com/ngoclaw/agentcore/internal/protocol/anthropic"
	_ "github.com/ngoclaw/agentcore/internal/protocol/copilot"
	_ "github.com/ngoclaw/agentcore/internal/protocol/gemini"
	_ "github.com/ngoclaw/agentcore/internal/protocol/openai"
	"github.com/ngoclaw/agentcore/internal/runner"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/internal/todo"
	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/internal/tool/builtin"
	"github.com/ngoclaw/agentcore/internal/workspace"
)

const binaryName = "agentcore"

// defaultSubAgentMaxRounds bounds a spawned sub-agent's reasoning rounds
// when its caller doesn't pass max_steps, independent of the parent turn's
// own (usually larger) max_rounds — mirrors the teacher's SubAgentTool
// defaultMaxSteps of 25.
const defaultSubAgentMaxRounds = 25

func main() {
	root := &cobra.Command{
		Use:   binaryName,
		Short: "agentcore — multi-provider streaming agent loop execution core",
		RunE:  run,
	}

	root.Flags().Int("port", envInt("PORT", 0), "if set, serve turns over HTTP/SSE instead of stdin/stdout")
	root.Flags().String("provider", envOr("LLM_PROVIDER", "openai"), "openai | anthropic | gemini | copilot")
	root.Flags().String("llm-base-url", envOr("LLM_BASE_URL", ""), "provider base URL override")
	root.Flags().String("llm-model", envOr("LLM_MODEL", ""), "model name")
	root.Flags().String("llm-api-key", envOr("LLM_API_KEY", ""), "provider API key")
	root.Flags().Bool("debug", envBool("DEBUG") || envBool("RUST_LOG"), "verbose logging")

	root.Flags().Int("max-rounds", 0, "override max rounds per turn (spec default: 50)")
	root.Flags().Int("turn-timeout-secs", 0, "override per-turn timeout in seconds (spec default: 300)")
	root.Flags().Int("tool-timeout-secs", 0, "override per-tool-call timeout in seconds (spec default: 60)")
	root.Flags().String("approval-policy", envOr("AGENTCORE_APPROVAL_POLICY", ""), "manual|auto|whitelist:a,b|autoloop:depth:maxtools")
	root.Flags().Float64("summary-trigger-ratio", 0, "fraction of the input budget at which history summarization kicks in (spec default: 0.6)")
	root.Flags().Float64("output-reservation-ratio", 0, "fraction of a model's window reserved for output, overriding the built-in per-model table")
	root.Flags().String("config-file", envOr("AGENTCORE_CONFIG_FILE", ""), "optional YAML file hot-reloaded for the options above")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v != "" && v != "0" && v != "false"
}

func run(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	providerName, _ := cmd.Flags().GetString("provider")
	baseURL, _ := cmd.Flags().GetString("llm-base-url")
	model, _ := cmd.Flags().GetString("llm-model")
	apiKey, _ := cmd.Flags().GetString("llm-api-key")
	debug, _ := cmd.Flags().GetBool("debug")

	logger, err := logging.ForDebugFlag(debug)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	adapter, err := protocol.Get(providerName)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if model == "" {
		return fmt.Errorf("--llm-model (or LLM_MODEL) is required")
	}

	cfg := config.FromEnv()
	cfg.Model = model
	if v, _ := cmd.Flags().GetInt("max-rounds"); v > 0 {
		cfg.MaxRounds = v
	}
	if v, _ := cmd.Flags().GetInt("turn-timeout-secs"); v > 0 {
		cfg.TurnTimeoutSecs = v
	}
	if v, _ := cmd.Flags().GetInt("tool-timeout-secs"); v > 0 {
		cfg.ToolTimeoutSecs = v
	}
	if v, _ := cmd.Flags().GetString("approval-policy"); v != "" {
		cfg.ApprovalPolicy = config.ParseApprovalPolicy(v)
	}
	if v, _ := cmd.Flags().GetFloat64("summary-trigger-ratio"); v > 0 {
		cfg.SummaryTriggerRatio = v
	}
	if v, _ := cmd.Flags().GetFloat64("output-reservation-ratio"); v > 0 {
		cfg.OutputReservationRatio = v
	}

	configFn := func() config.Config { return cfg }
	if configFile, _ := cmd.Flags().GetString("config-file"); configFile != "" {
		watcher := config.NewWatcher(configFile, cfg, logger)
		if err := watcher.Start(); err != nil {
			logger.Warn("config file watcher failed to start, falling back to the static config", zap.String("path", configFile), zap.Error(err))
		} else {
			defer watcher.Stop()
			configFn = watcher.Config
		}
	}

	dataDir := envOr("AGENTCORE_DATA_DIR", ".agentcore")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	store, err := eventlog.NewStore(dataDir, logger)
	if err != nil {
		return fmt.Errorf("event log: %w", err)
	}
	defer store.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cwd: %w", err)
	}
	ws, err := workspace.New(cwd, workspace.DefaultConfig())
	if err != nil {
		return fmt.Errorf("workspace: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		logger.Info("received shutdown signal", zap.String("signal", s.String()))
		cancel()
	}()

	deps := loopDeps{
		Adapter:   adapter,
		Logger:    logger,
		BaseURL:   baseURL,
		APIKey:    apiKey,
		Model:     model,
		Workspace: ws,
		EventLog:  store,
		RunnerReg: runner.NewRegistry(),
		ConfigFn:  configFn,
	}

	if port > 0 {
		return serveHTTP(ctx, port, deps)
	}
	return runStdin(ctx, deps)
}

// loopDeps bundles everything buildLoop needs to construct one session's
// agent.Loop, shared between the stdin runner and the HTTP bridge.
type loopDeps struct {
	Adapter   protocol.Adapter
	Logger    *zap.Logger
	BaseURL   string
	APIKey    string
	Model     string
	Workspace *workspace.Workspace
	EventLog  *eventlog.Store
	RunnerReg *runner.Registry

	// ConfigFn returns the current configuration. When a --config-file
	// watcher is active, the watcher reloads it whenever the file changes;
	// buildLoopForSession calls ConfigFn once per session build, so approval
	// policy, budget ratio, and timeout changes apply to loops built after
	// the reload, without a restart.
	ConfigFn func() config.Config
}

// policyFromConfig maps a config.ApprovalPolicy onto the concrete Policy the
// permission Gate enforces, one-to-one with config.ParseApprovalPolicy's
// grammar.
func policyFromConfig(p config.ApprovalPolicy) *permission.Policy {
	switch p.Kind {
	case "auto":
		return permission.NewAutoApprove()
	case "whitelist":
		return permission.NewWhitelist(p.Whitelist...)
	case "autoloop":
		return permission.NewAutoLoop(p.MaxDepth, p.MaxTools)
	default:
		return permission.NewManual()
	}
}

// buildLoop constructs a fresh top-level agent.Loop for sessionID, reading
// back any prior snapshot so a resumed CLI/HTTP session continues where it
// left off.
func buildLoop(ctx context.Context, deps loopDeps, sessionID string, ask builtin.AskFunc) (*agent.Loop, *session.Session, context.Context, error) {
	sess := session.New(sessionID)
	if snap, err := deps.EventLog.ReadSnapshot(sessionID); err == nil && snap != nil {
		for _, m := range snap.Messages {
			sess.AppendMessage(m)
		}
	}
	l, sessCtx, err := buildLoopForSession(ctx, deps, sess, ask, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	return l, sess, sessCtx, nil
}

// buildLoopForSession wires one agent.Loop around an already-constructed
// session, applying the live config.Config (spec §6's approval_policy,
// summary_trigger_ratio, output_reservation_ratio, tool_timeout_secs,
// max_rounds, turn_timeout_secs) and registering the spawn_agent/
// spawn_agents tools so sub-session fan-out (internal/session.NewSubSession,
// internal/composition.Wait) is reachable from a running turn rather than
// only from their own package tests. maxRoundsOverride, when > 0, takes
// precedence over cfg.MaxRounds — a sub-agent's own max_steps argument.
func buildLoopForSession(ctx context.Context, deps loopDeps, sess *session.Session, ask builtin.AskFunc, maxRoundsOverride int) (*agent.Loop, context.Context, error) {
	sessionID := sess.ID()
	cfg := deps.ConfigFn()

	sessCtx, cancel := context.WithCancel(ctx)
	r, err := deps.RunnerReg.Start(sessionID, cancel)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	todos := todo.NewStore()
	registry := tool.NewInMemoryRegistry()
	spawn := newSpawnFunc(deps, sess)
	for _, t := range []tool.Tool{
		builtin.NewReadFileTool(deps.Workspace),
		builtin.NewWriteFileTool(deps.Workspace),
		builtin.NewAppendFileTool(deps.Workspace),
		builtin.NewFileExistsTool(deps.Workspace),
		builtin.NewListDirTool(deps.Workspace),
		builtin.NewGlobTool(deps.Workspace),
		builtin.NewGrepFileTool(deps.Workspace),
		builtin.NewGrepProjectTool(deps.Workspace),
		builtin.NewGetFileInfoTool(deps.Workspace),
		builtin.NewApplyPatchTool(deps.Workspace),
		builtin.NewExecuteCommandTool(deps.Workspace),
		builtin.NewTerminalSessionTool(deps.Workspace),
		builtin.NewGitStatusTool(deps.Workspace),
		builtin.NewGitDiffTool(deps.Workspace),
		builtin.NewGitWriteTool(deps.Workspace),
		builtin.NewHTTPRequestTool(),
		builtin.NewSleepTool(),
		builtin.NewSetWorkspaceTool(deps.Workspace),
		builtin.NewGetCurrentDirTool(deps.Workspace),
		builtin.NewAskUserTool(ask),
		builtin.NewCreateTodoListTool(todos, sessionID),
		builtin.NewUpdateTodoItemTool(todos, sessionID),
		builtin.NewSubAgentTool(spawn, defaultSubAgentMaxRounds),
		builtin.NewMultiSpawnTool(spawn, deps.Logger, defaultSubAgentMaxRounds),
	} {
		if err := registry.Register(t); err != nil {
			return nil, nil, err
		}
	}

	budgetRegistry := budget.NewRegistry()
	budgetRegistry.ReservedOutputRatio = cfg.OutputReservationRatio
	preparer := budget.NewContextPreparer(budget.NewDefaultCounter(), budgetRegistry, budget.NewSimpleSummarizer())
	preparer.SummaryTriggerRatio = cfg.SummaryTriggerRatio

	executor := tool.NewExecutor(registry, deps.Logger)
	if cfg.ToolTimeoutSecs > 0 {
		executor.ToolTimeout = time.Duration(cfg.ToolTimeoutSecs) * time.Second
	}

	loopCfg := agent.DefaultConfig(deps.Model)
	if maxRoundsOverride > 0 {
		loopCfg.MaxRounds = maxRoundsOverride
	} else if cfg.MaxRounds > 0 {
		loopCfg.MaxRounds = cfg.MaxRounds
	}
	if cfg.TurnTimeoutSecs > 0 {
		loopCfg.TurnTimeout = time.Duration(cfg.TurnTimeoutSecs) * time.Second
	}

	l := &agent.Loop{
		Session:  sess,
		Preparer: preparer,
		Adapter:  deps.Adapter,
		Tools:    registry,
		Executor: executor,
		Gate:     permission.NewGate(policyFromConfig(cfg.ApprovalPolicy)),
		Todos:    todos,
		Runner:   r,
		EventLog: deps.EventLog,
		BaseURL:  deps.BaseURL,
		APIKey:   deps.APIKey,
		Config:   loopCfg,
		Logger:   deps.Logger,
	}
	return l, sessCtx, nil
}

// newSpawnFunc returns the closure the spawn_agent/spawn_agents tools call
// to run one sub-task to completion: it derives a session.NewSubSession
// from parent, builds a full nested loop for it via buildLoopForSession, and
// drains the loop's events into a single outcome. ask_user is unsupported
// inside a sub-agent, matching the HTTP bridge's non-interactive stance.
func newSpawnFunc(deps loopDeps, parent *session.Session) builtin.SpawnFunc {
	return func(ctx context.Context, task, systemPrompt string, maxRounds int) (builtin.SubAgentOutcome, error) {
		// eventlog.ValidateSessionID rejects "/", so the sub-session id stays
		// flat rather than nesting like a path.
		subID := parent.ID() + "-sub-" + uuid.NewString()
		sub := session.NewSubSession(subID, parent)
		if systemPrompt != "" {
			sub.AppendMessage(session.NewSystemMessage(subID+"-sys", systemPrompt))
		}

		ask := func(context.Context, string) (string, error) {
			return "", fmt.Errorf("ask_user unsupported inside a sub-agent")
		}
		l, sessCtx, err := buildLoopForSession(ctx, deps, sub, ask, maxRounds)
		if err != nil {
			return builtin.SubAgentOutcome{}, err
		}
		l.Approve = func(context.Context, string, session.ToolCall) bool { return false }

		var toolsUsed []string
		var failure string
		for ev := range l.Run(sessCtx, task) {
			switch ev.Type {
			case agent.EventToolStart:
				toolsUsed = append(toolsUsed, ev.ToolName)
			case agent.EventError:
				failure = ev.Message
			}
		}
		if failure != "" {
			return builtin.SubAgentOutcome{}, fmt.Errorf("sub-agent failed: %s", failure)
		}

		text := ""
		if msgs := sub.Messages(); len(msgs) > 0 {
			text = msgs[len(msgs)-1].Text
		}
		return builtin.SubAgentOutcome{Text: text, Rounds: l.Runner.Round(), ToolsUsed: toolsUsed}, nil
	}
}

// runStdin implements the default mode: read one line at a time from
// stdin, drive a turn to completion, print tokens and tool activity to
// stdout. Approval prompts and ask_user questions are resolved on stdin
// too, matching the teacher's single-terminal REPL model.
func runStdin(ctx context.Context, deps loopDeps) error {
	reader := bufio.NewReader(os.Stdin)
	ask := func(ctx context.Context, question string) (string, error) {
		fmt.Printf("\n? %s\n> ", question)
		line, _ := reader.ReadString('\n')
		return line, nil
	}

	l, _, sessCtx, err := buildLoop(ctx, deps, "cli-session", ask)
	if err != nil {
		return err
	}
	l.Approve = func(ctx context.Context, sessionID string, call session.ToolCall) bool {
		fmt.Printf("\napprove %s(%s)? [y/N] ", call.Name, call.Arguments)
		line, _ := reader.ReadString('\n')
		return line == "y\n" || line == "Y\n"
	}

	fmt.Println("agentcore ready. Type a message and press enter; Ctrl-D to exit.")
	for {
		fmt.Print("\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		if line == "\n" {
			continue
		}
		for ev := range l.Run(sessCtx, line) {
			printEvent(ev)
		}
		if sessCtx.Err() != nil {
			return nil
		}
	}
}

func printEvent(ev agent.Event) {
	switch ev.Type {
	case agent.EventToken:
		fmt.Print(ev.Content)
	case agent.EventToolStart:
		fmt.Printf("\n[tool] %s(%s)\n", ev.ToolName, ev.ToolArgs)
	case agent.EventToolComplete:
		fmt.Printf("[tool result] %s\n", ev.ToolResult)
	case agent.EventToolError:
		fmt.Printf("[tool error] %s\n", ev.Message)
	case agent.EventError:
		fmt.Printf("\n[error] %s\n", ev.Message)
	case agent.EventComplete:
		fmt.Println()
	}
}

// serveHTTP is the minimal reference HTTP/SSE bridge spec.md §6's --port
// flag implies: POST /sessions/{id}/turns with a JSON {"message": "..."}
// body streams back the same AgentEvent sequence runStdin prints, one
// JSON object per SSE `data:` line. It is deliberately bare net/http —
// the HTTP surface is explicitly out of scope (spec.md §1); this is a
// thin reference consumer, not a supported API, so it does not reach for
// the teacher's gin-gonic router (SPEC_FULL.md §3 drops that dependency).
func serveHTTP(ctx context.Context, port int, deps loopDeps) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/turns") {
			http.NotFound(w, r)
			return
		}
		sessionID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/turns")
		if sessionID == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}

		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ask := func(ctx context.Context, question string) (string, error) {
			// No interactive channel over this bridge; return an error
			// carrying the question rather than blocking the HTTP request
			// forever.
			return "", fmt.Errorf("ask_user unsupported over HTTP bridge: %s", question)
		}
		l, _, sessCtx, err := buildLoop(r.Context(), deps, sessionID, ask)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		l.Approve = func(context.Context, string, session.ToolCall) bool { return false }

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		for ev := range l.Run(sessCtx, body.Message) {
			line, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", line)
			flusher.Flush()
		}
	})

	srv := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	deps.Logger.Info("agentcore HTTP bridge listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
