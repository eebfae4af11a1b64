// Command execution for CLI commands.
//
// Information Hiding:
// - Wiring of driver, trace store, vision client, tools and planner hidden
// - Trace index selection hidden
// - Output formatting hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/richinex/sightline/agent"
	"github.com/richinex/sightline/archive"
	"github.com/richinex/sightline/config"
	"github.com/richinex/sightline/grounding"
	"github.com/richinex/sightline/llm"
	"github.com/richinex/sightline/screen"
	"github.com/richinex/sightline/storage"
	"github.com/richinex/sightline/tools"
	"github.com/richinex/sightline/trace"
	"go.uber.org/zap"
)

// Options holds per-invocation CLI options not covered by settings.
type Options struct {
	Verbose bool
}

// traceIndex stores both the trace and the planner conversation.
type traceIndex interface {
	storage.ConversationStorage
	storage.TraceIndex
}

// RunTask executes one task in a fresh run directory.
func RunTask(ctx context.Context, w io.Writer, task string, settings config.Settings, opts Options, logger *zap.Logger) error {
	if strings.TrimSpace(task) == "" {
		return errors.New("task is empty")
	}

	planner, err := NewProvider(settings.Planner)
	if err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	visionProvider, err := NewProvider(settings.Vision.LLMConfig)
	if err != nil {
		return fmt.Errorf("vision: %w", err)
	}

	index, closeIndex, err := openIndex(settings.Trace.Index)
	if err != nil {
		return err
	}
	defer closeIndex()

	run, err := trace.NewRun(settings.Trace.Dir, time.Now())
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("run", run.Name()))

	if err := index.RecordRun(ctx, storage.RunRecord{RunID: run.ID, Root: run.Root, Prompt: task, CreatedAt: run.CreatedAt}); err != nil {
		logger.Warn("trace index write failed", zap.Error(err))
	}
	store := trace.NewStore(run, logger, trace.WithRecorder(index))
	if err := store.SavePrompt(ctx, task); err != nil {
		return err
	}
	fmt.Fprintf(w, "Run traces will be saved to: %s\n", run.Root)

	driver, err := screen.New(ctx, settings.Screen.Driver, ScreenOptions(settings.Screen), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("driver close failed", zap.Error(err))
		}
	}()

	vision := llm.NewClient(visionProvider, llm.WithRateLimit(settings.Vision.RateLimit, settings.Vision.Burst))
	frames, err := grounding.NewFrames(store, driver, grounding.FramesOptions{
		MaxSide:   settings.Vision.MaxSide,
		CacheSize: settings.Vision.CacheSize,
	}, logger)
	if err != nil {
		return err
	}
	describer := grounding.NewDescriber(frames, vision, logger)
	locator := grounding.NewLocator(frames, driver, vision, logger, grounding.WithLocateRecorder(index))

	registry, err := tools.NewBrowserRegistry(describer, locator, driver)
	if err != nil {
		return err
	}

	a, err := agent.NewBuilder("sightline").
		MaxIterations(settings.Agent.MaxIterations).
		ToolConfig(tools.ToolConfig{MaxRetries: uint32(settings.Agent.ToolRetries) + 1}).
		Registry(registry).
		Storage(index, run.ID).
		Logger(logger).
		Build(planner)
	if err != nil {
		return err
	}

	if settings.Agent.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Agent.Timeout)
		defer cancel()
	}

	fmt.Fprintf(w, "User task:\n%s\n\n", task)
	response := a.Execute(ctx, task)

	if opts.Verbose {
		printAgentSteps(w, response.Steps)
	}
	printUsage(w, response.Metadata, vision.Usage())
	printFrames(w, run)

	switch response.Type {
	case agent.ResponseSuccess:
		fmt.Fprintf(w, "\nFinal Result:\n%s\n", response.Result)
		return nil
	case agent.ResponseFailure:
		return fmt.Errorf("task failed: %s", response.Error)
	case agent.ResponseTimeout:
		fmt.Fprintf(w, "\nTimeout. Partial result:\n%s\n", response.PartialResult)
		return errors.New("task timed out")
	default:
		return fmt.Errorf("unknown response type: %v", response.Type)
	}
}

// NewProvider builds a provider from one LLM section of the settings.
func NewProvider(cfg config.LLMConfig) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(cfg.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(cfg.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(cfg.Model).
		BaseURL(cfg.BaseURL).
		MaxTokens(cfg.MaxTokens).
		Temperature(float32(cfg.Temperature)).
		APIKey(apiKey)
}

// ScreenOptions maps settings onto driver options.
func ScreenOptions(cfg config.ScreenConfig) screen.Options {
	return screen.Options{
		StartURL:    cfg.StartURL,
		Headless:    cfg.Headless,
		Width:       cfg.Width,
		Height:      cfg.Height,
		DeviceScale: cfg.DeviceScale,
		Settle: screen.Settle{
			AfterClick:  cfg.AfterClick,
			KeyInterval: cfg.KeyInterval,
			BeforeEnter: cfg.BeforeEnter,
			AfterType:   cfg.AfterType,
		},
	}
}

// openIndex opens the SQLite trace index, or an in-memory one when path is
// empty.
func openIndex(path string) (traceIndex, func(), error) {
	if path == "" {
		return storage.NewInMemoryStorage(), func() {}, nil
	}
	db, err := storage.OpenSqlite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace index: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}

// ListTools lists the tools the planner can call.
func ListTools(w io.Writer, verbose bool) {
	// Metadata only; the tools are never executed here.
	registry, err := tools.NewBrowserRegistry(nil, nil, nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintln(w, "Available tools:")
	fmt.Fprintln(w)

	for _, meta := range registry.List() {
		fmt.Fprintf(w, "  %s\n", meta.Name)
		fmt.Fprintf(w, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(w, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(w, "      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Fprintln(w)
	}
}

// ListRuns prints the runs recorded in the index at path.
func ListRuns(ctx context.Context, w io.Writer, path string) error {
	index, closeIndex, err := openIndex(path)
	if err != nil {
		return err
	}
	defer closeIndex()

	runs, err := index.ListRuns(ctx)
	if err != nil {
		return err
	}
	printRuns(w, runs)
	return nil
}

// ShowRun prints the artifacts, locate outcomes and planner conversation of
// one run.
func ShowRun(ctx context.Context, w io.Writer, path, runID string) error {
	index, closeIndex, err := openIndex(path)
	if err != nil {
		return err
	}
	defer closeIndex()

	artifacts, err := index.Artifacts(ctx, runID)
	if err != nil {
		return err
	}
	locates, err := index.Locates(ctx, runID)
	if err != nil {
		return err
	}
	conversation, err := index.Load(ctx, runID)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 && len(locates) == 0 && len(conversation) == 0 {
		return fmt.Errorf("run %q not found in %s", runID, path)
	}
	printRun(w, artifacts, locates)
	printConversation(w, conversation)
	return nil
}

// ArchiveRun uploads a run directory to the configured bucket.
func ArchiveRun(ctx context.Context, w io.Writer, runDir string, cfg config.ArchiveConfig, logger *zap.Logger) error {
	archiver, err := archive.NewS3(ctx, cfg.Region, logger)
	if err != nil {
		return err
	}
	n, err := archiver.Upload(ctx, runDir, cfg.Bucket, cfg.Prefix)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Uploaded %d files to s3://%s/%s\n", n, cfg.Bucket, archive.Key(cfg.Prefix, runDir, ""))
	return nil
}

// Output helpers

const (
	maxObservationLen = 400
	maxTurnLen        = 100
)

func printRuns(w io.Writer, runs []storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tFRAMES\tLOCATES\tTASK")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			r.RunID, r.CreatedAt.Format(time.DateTime), r.Frames, r.Locates, truncateString(r.Prompt, 60))
	}
	tw.Flush()
}

func printRun(w io.Writer, artifacts []storage.ArtifactRecord, locates []storage.LocateRecord) {
	fmt.Fprintln(w, "Artifacts:")
	for _, a := range artifacts {
		fmt.Fprintf(w, "  [%d] %-11s %s\n", a.Index, a.Kind, a.Path)
	}

	fmt.Fprintln(w, "Locates:")
	for _, l := range locates {
		switch l.Status {
		case string(grounding.StatusSuccess):
			fmt.Fprintf(w, "  [%d] %q -> (%d, %d)\n", l.Index, l.Query, l.X, l.Y)
		case string(grounding.StatusError):
			fmt.Fprintf(w, "  [%d] %q -> error: %s\n", l.Index, l.Query, l.Message)
		default:
			fmt.Fprintf(w, "  [%d] %q -> %s\n", l.Index, l.Query, l.Status)
		}
	}
}

// ForgetRun deletes the stored planner conversation of one run. The trace
// directory and its index entries stay.
func ForgetRun(ctx context.Context, w io.Writer, path, runID string) error {
	index, closeIndex, err := openIndex(path)
	if err != nil {
		return err
	}
	defer closeIndex()

	if err := index.Delete(ctx, runID); err != nil {
		return fmt.Errorf("forget %s: %w", runID, err)
	}
	fmt.Fprintf(w, "Conversation of %s removed; trace kept.\n", runID)
	return nil
}

func printConversation(w io.Writer, messages []llm.ChatMessage) {
	if len(messages) == 0 {
		return
	}
	fmt.Fprintln(w, "Conversation:")
	for i, m := range messages {
		switch {
		case m.Role == llm.RoleSystem:
			fmt.Fprintf(w, "  %2d system (%d chars)\n", i, len(m.Content))
		case len(m.ToolCalls) > 0:
			names := make([]string, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				names[j] = fmt.Sprintf("%s(%s)", tc.Name, tc.Arguments)
			}
			fmt.Fprintf(w, "  %2d %s -> %s\n", i, m.Role, strings.Join(names, ", "))
		case m.Role == llm.RoleTool:
			fmt.Fprintf(w, "  %2d %s[%s] %s\n", i, m.Role, m.ToolName, oneLine(m.Content, maxTurnLen))
		default:
			fmt.Fprintf(w, "  %2d %s %s\n", i, m.Role, oneLine(m.Content, maxTurnLen))
		}
	}
}

func printAgentSteps(w io.Writer, steps []agent.Step) {
	fmt.Fprintln(w, "--- Steps ---")
	for _, step := range steps {
		if step.Thought != "" {
			fmt.Fprintf(w, "[%d] %s\n", step.Iteration, step.Thought)
		} else {
			fmt.Fprintf(w, "[%d]\n", step.Iteration)
		}
		if step.Action != nil {
			fmt.Fprintf(w, "    Action: %s\n", *step.Action)
		}
		if step.Observation != nil {
			fmt.Fprintf(w, "    Observation: %s\n", truncateString(*step.Observation, maxObservationLen))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "-------------")
}

func printFrames(w io.Writer, run *trace.RunContext) {
	fmt.Fprintf(w, "  Frames captured: %d", run.Allocated())
	if idx, ok := run.LastDescribed(); ok {
		fmt.Fprintf(w, " (last described: %d)", idx)
	}
	fmt.Fprintln(w)
}

func printUsage(w io.Writer, meta agent.Metadata, vision llm.TokenUsage) {
	fmt.Fprintf(w, "\nRun %s took %s\n", meta.RunID, time.Duration(meta.ExecutionTimeMs)*time.Millisecond)
	fmt.Fprintf(w, "\nToken Usage:\n")
	fmt.Fprintf(w, "  Planner calls: %d\n", meta.LLMCalls)
	if meta.TokenUsage != nil {
		fmt.Fprintf(w, "  Planner tokens: %d (prompt %d, completion %d)\n",
			meta.TokenUsage.TotalTokens, meta.TokenUsage.PromptTokens, meta.TokenUsage.CompletionTokens)
	}
	fmt.Fprintf(w, "  Vision tokens: %d (prompt %d, completion %d)\n",
		vision.TotalTokens, vision.PromptTokens, vision.CompletionTokens)
	fmt.Fprintf(w, "  Tool calls: %d\n", len(meta.ToolCalls))
}

// oneLine collapses whitespace so multi-line reports fit one row.
func oneLine(s string, maxLen int) string {
	return truncateString(strings.Join(strings.Fields(s), " "), maxLen)
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
