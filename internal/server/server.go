// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools that depend on abstractions. No business
// logic lives here — only wiring.
package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/devrelay/relay/internal/capability"
	"github.com/devrelay/relay/internal/config"
	"github.com/devrelay/relay/internal/gateway"
	"github.com/devrelay/relay/internal/issuestate"
	"github.com/devrelay/relay/internal/prompts"
	"github.com/devrelay/relay/internal/resources"
	"github.com/devrelay/relay/internal/store"
	"github.com/devrelay/relay/internal/tools"
	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all orchestration tools
// registered. This is the single place where all dependencies are resolved.
//
// The returned cleanup function closes the backend connections and the
// local database (when one is open) and must be called on shutdown
// (typically via defer). It is always non-nil.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	// Logs go to stderr: stdout is the MCP transport.
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	// --- Create shared dependencies ---

	gw := gateway.New(cfg)
	cleanup := func() { gw.Close() }

	var db store.DB
	if cfg.LocalStore {
		local, err := store.OpenLocal(cfg.DatabasePath)
		if err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("opening local store: %w", err)
		}
		cleanup = func() {
			if err := local.Close(); err != nil {
				log.Warn("closing local store", "error", err)
			}
			gw.Close()
		}
		db = local
	} else {
		db = store.NewMCPAdapter(gw)
	}

	resolver := capability.NewResolver(gw)
	tracker := issuestate.NewTracker(resolver, db)
	wm := workflow.NewManager(db, resolver, tracker, cfg, log)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"relay",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register workflow tools ---

	startTask := tools.NewStartTaskTool(wm)
	s.AddTool(startTask.Definition(), startTask.Handle)

	updateProgress := tools.NewUpdateProgressTool(wm)
	s.AddTool(updateProgress.Definition(), updateProgress.Handle)

	completeTask := tools.NewCompleteTaskTool(wm)
	s.AddTool(completeTask.Definition(), completeTask.Handle)

	createHandoff := tools.NewCreateHandoffTool(wm)
	s.AddTool(createHandoff.Definition(), createHandoff.Handle)

	smartHandoff := tools.NewSmartHandoffTool(wm)
	s.AddTool(smartHandoff.Definition(), smartHandoff.Handle)

	reviewReadiness := tools.NewReviewReadinessTool(wm)
	s.AddTool(reviewReadiness.Definition(), reviewReadiness.Handle)

	contextResurrection := tools.NewContextResurrectionTool(wm)
	s.AddTool(contextResurrection.Definition(), contextResurrection.Handle)

	subtaskFromReview := tools.NewCreateSubtaskFromMRReviewTool(wm)
	s.AddTool(subtaskFromReview.Definition(), subtaskFromReview.Handle)

	// --- Register daily-rhythm tools ---

	whatsUp := tools.NewWhatsUpTool(wm)
	s.AddTool(whatsUp.Definition(), whatsUp.Handle)

	endOfDay := tools.NewEndOfDayTool(wm)
	s.AddTool(endOfDay.Definition(), endOfDay.Handle)

	taskStatus := tools.NewTaskStatusTool(wm)
	s.AddTool(taskStatus.Definition(), taskStatus.Handle)

	// --- Register raw backend passthroughs ---
	//
	// Escape hatches for operations the orchestration tools don't cover.
	// They talk to the gateway directly, bypassing the workflow manager.

	queryTracker := tools.NewQueryTrackerTool(gw)
	s.AddTool(queryTracker.Definition(), queryTracker.Handle)

	queryCodeHost := tools.NewQueryCodeHostTool(gw)
	s.AddTool(queryCodeHost.Definition(), queryCodeHost.Handle)

	listTracker := tools.NewListTrackerToolsTool(gw)
	s.AddTool(listTracker.Definition(), listTracker.Handle)

	listCodeHost := tools.NewListCodeHostToolsTool(gw)
	s.AddTool(listCodeHost.Definition(), listCodeHost.Handle)

	// --- Register prompts ---

	checkinPrompt := prompts.NewCheckinPrompt()
	s.AddPrompt(checkinPrompt.Definition(), checkinPrompt.Handle)

	handoffPrompt := prompts.NewHandoffPrompt()
	s.AddPrompt(handoffPrompt.Definition(), handoffPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(wm)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is the cleanup returned alongside errors so callers can always defer it.
func noop() {}

// serverInstructions returns the system instructions that tell the client
// how to use Relay effectively.
func serverInstructions() string {
	return `You have access to Relay, a developer-workflow orchestration MCP server.
Relay sits between you and three backends — an issue tracker, a code host,
and a persistence store — and coordinates multi-step workflows across them.

## Daily rhythm

- Start the day with whats_up: pending handoffs, assigned issues, repository
  state, and any session left open. Backend outages show up inline in the
  report instead of failing it.
- Use start_task to begin work on an issue. It opens a local work session,
  moves the issue to In Progress when the tracker allows it, suggests a
  branch name, and records micro-tasks.
- Log progress with update_progress as you go; task_status shows where you
  are at any point.
- Finish with complete_task, or hand the work to a teammate with
  create_handoff / smart_handoff.
- End the day with end_of_day. It never closes anything on your behalf —
  it only reminds you when a session is still open.

## Handoffs

smart_handoff is the rich variant: it verifies the issue, finds the related
merge request, analyzes unresolved review comments, creates tracker
sub-tasks for actionable ones, estimates remaining effort, and posts a
single summary comment. Only a missing issue or a failed store write aborts
it; every other problem degrades to a warning in the result. Read the
warnings — they tell you which steps were skipped.

## Review flow

- review_readiness_check reports whether an issue is ready for review:
  incomplete sub-tasks, open sessions, conflict markers, pipeline state.
  Fields it could not determine are omitted, not reported as false.
- create_subtask_from_mr_review turns a merge request's actionable review
  comments into tracker sub-tasks.
- context_resurrection rebuilds working context from the last ended
  session when you return to a task after time away.

## Raw access

query_tracker / query_codehost invoke any backend operation directly;
list_tracker_tools / list_codehost_tools show what each backend offers.
Prefer the orchestration tools — the raw ones are escape hatches.`
}
