// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Coordinator: plans tickets from a goal and applies them to a workspace

package prototyper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prototyp3d/prototyp3d/internal/debugger"
	"github.com/prototyp3d/prototyp3d/internal/llm"
	"github.com/prototyp3d/prototyp3d/internal/progress"
	"github.com/prototyp3d/prototyp3d/internal/sandbox"
	"github.com/prototyp3d/prototyp3d/internal/ticket"
	"github.com/prototyp3d/prototyp3d/internal/workspace"
)

// DefaultMaxTickets caps how many planned tickets get applied per run
const DefaultMaxTickets = 5

// Non-fatal conditions. Callers may check them; the run continues.
var (
	ErrSummaryUnavailable = errors.New("workspace summary unavailable")
	ErrPlanningFailed     = errors.New("planning produced no tickets")
)

// Options tunes a coordinator. Zero values fall back to defaults; nil
// collaborators disable the corresponding stage.
type Options struct {
	BaseDir    string // parent directory for workspaces
	Template   string // template directory or git URL
	MaxTickets int    // applied-plan cap

	Debug       bool // run the repair loop after each ticket
	DebugConfig debugger.Config
	Sandbox     sandbox.Sandbox
	Driver      sandbox.Driver

	Sink progress.Sink
}

// TicketOutcome pairs one applied ticket with its mutation result and,
// when debugging is enabled, its repair outcome
type TicketOutcome struct {
	Ticket ticket.Ticket    `json:"ticket"`
	Result ticket.Result    `json:"result"`
	Repair *debugger.Result `json:"repair,omitempty"`
}

// RunResult is the outcome of one full coordinator run
type RunResult struct {
	WorkspacePath string          `json:"workspace_path"`
	Outcomes      []TicketOutcome `json:"outcomes"`
}

// Prototyper orchestrates one prototyping session: workspace setup,
// summarization, planning and sequential ticket application
type Prototyper struct {
	goal string
	gw   llm.Client
	ws   *workspace.Workspace
	sink progress.Sink
	opts Options

	summary     string
	plan        []ticket.Ticket
	planHistory [][]ticket.Ticket
}

// New creates a coordinator for the given goal. An empty name yields a
// fresh UUID-named workspace.
func New(gw llm.Client, goal, name string, opts Options) *Prototyper {
	if opts.MaxTickets <= 0 {
		opts.MaxTickets = DefaultMaxTickets
	}
	if opts.Sink == nil {
		opts.Sink = progress.Discard
	}

	return &Prototyper{
		goal: goal,
		gw:   gw,
		ws:   workspace.New(opts.BaseDir, name),
		sink: opts.Sink,
		opts: opts,
	}
}

// Name returns the workspace name (generated when none was given)
func (p *Prototyper) Name() string { return p.ws.Name }

// SetGoal replaces the goal for a follow-up run against the same
// workspace
func (p *Prototyper) SetGoal(goal string) { p.goal = goal }

// WorkspacePath returns the on-disk workspace location
func (p *Prototyper) WorkspacePath() string { return p.ws.Path }

// Summary returns the current workspace summary
func (p *Prototyper) Summary() string { return p.summary }

// Plan returns the current applied plan
func (p *Prototyper) CurrentPlan() []ticket.Ticket { return p.plan }

// PlanHistory returns every plan version installed so far, oldest first
func (p *Prototyper) PlanHistory() [][]ticket.Ticket { return p.planHistory }

// SetupWorkspace provisions the workspace from the template according to
// policy. A missing template is a fatal precondition failure.
func (p *Prototyper) SetupWorkspace(policy workspace.SetupPolicy) error {
	p.sink.Publish(progress.EventSettingUp, "Setting up workspace: "+p.ws.Name, nil)

	result, err := p.ws.Setup(p.opts.Template, policy)
	if err != nil {
		p.sink.Publish(progress.EventError, "Workspace setup failed: "+err.Error(), nil)
		return fmt.Errorf("workspace setup failed: %w", err)
	}

	slog.Info("workspace ready", "name", p.ws.Name, "path", p.ws.Path,
		"reused", result.Reused, "files", result.FilesCopied)
	return nil
}

// SummarizeWorkspace refreshes the cached summary from the current tree.
// Fail-soft: on any degradation the previous summary survives and the
// returned error wraps ErrSummaryUnavailable.
func (p *Prototyper) SummarizeWorkspace(ctx context.Context) (string, error) {
	sources, err := workspace.EnumerateSources(p.ws.Path)
	if err != nil || len(sources) == 0 {
		slog.Warn("summary skipped: no recognized source files", "path", p.ws.Path)
		return p.summary, fmt.Errorf("%w: no recognized source files", ErrSummaryUnavailable)
	}

	data, err := p.gw.CompleteStructured(ctx, buildSummaryPrompt(sources), "")
	if err != nil {
		slog.Warn("summary request failed, keeping previous summary", "error", err)
		return p.summary, fmt.Errorf("%w: %v", ErrSummaryUnavailable, err)
	}

	summary, ok := data["summary"].(string)
	if !ok || summary == "" {
		slog.Warn("summary response missing summary field, keeping previous summary")
		return p.summary, fmt.Errorf("%w: response missing summary", ErrSummaryUnavailable)
	}

	p.summary = summary
	return p.summary, nil
}

// PlanTickets asks the gateway to break the goal into tickets and
// installs the result as the current plan, replacing any previous one
// wholesale. A response without a usable ticket list installs an empty
// plan and reports ErrPlanningFailed; the session stays alive.
func (p *Prototyper) PlanTickets(ctx context.Context) ([]ticket.Ticket, error) {
	data, err := p.gw.CompleteStructured(ctx, buildPlanPrompt(p.goal, p.summary), "")
	if err != nil {
		slog.Warn("planning request failed", "error", err)
		p.installPlan(nil)
		return nil, fmt.Errorf("%w: %v", ErrPlanningFailed, err)
	}

	tickets := parseTickets(data)
	if len(tickets) == 0 {
		slog.Warn("planning response contained no tickets")
		p.installPlan(nil)
		return nil, ErrPlanningFailed
	}

	if len(tickets) > p.opts.MaxTickets {
		slog.Info("capping plan", "planned", len(tickets), "cap", p.opts.MaxTickets)
		tickets = tickets[:p.opts.MaxTickets]
	}

	p.installPlan(tickets)
	return p.plan, nil
}

func (p *Prototyper) installPlan(tickets []ticket.Ticket) {
	p.plan = tickets
	p.planHistory = append(p.planHistory, tickets)
}

// Run applies the current plan sequentially. Each ticket gets a fresh
// summary afterwards so later tickets see earlier changes; when debugging
// is enabled the repair loop runs after each mutation. Degraded ticket
// outcomes never abort the run.
func (p *Prototyper) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{WorkspacePath: p.ws.Path}

	for _, t := range p.plan {
		outcome := TicketOutcome{Ticket: t}
		outcome.Result = t.Apply(ctx, p.ws.Path, p.summary, p.gw, p.sink)

		if p.opts.Debug && p.opts.Sandbox != nil && p.opts.Driver != nil {
			repair, err := p.runRepair(ctx, t)
			if err != nil {
				slog.Warn("repair loop failed", "ticket", t.Summary, "error", err)
				p.sink.Publish(progress.EventError, "Repair loop failed: "+err.Error(), nil)
			} else {
				outcome.Repair = repair
			}
		}

		if _, err := p.SummarizeWorkspace(ctx); err != nil {
			slog.Debug("post-ticket summary refresh degraded", "error", err)
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	p.sink.Publish(progress.EventCompleted, "Prototype run completed", map[string]any{
		"workspace_path": p.ws.Path,
		"tickets":        len(result.Outcomes),
	})
	return result, nil
}

func (p *Prototyper) runRepair(ctx context.Context, t ticket.Ticket) (*debugger.Result, error) {
	dbg := debugger.New(p.gw, p.opts.Sandbox, p.opts.Driver, p.sink, p.opts.DebugConfig)
	return dbg.Run(ctx, p.ws.Path, t.Description)
}

// Execute is the full create pipeline: setup, summarize, plan, run
func (p *Prototyper) Execute(ctx context.Context, policy workspace.SetupPolicy) (*RunResult, error) {
	if err := p.SetupWorkspace(policy); err != nil {
		return nil, err
	}
	if _, err := p.SummarizeWorkspace(ctx); err != nil {
		slog.Warn("initial summary degraded", "error", err)
	}
	if _, err := p.PlanTickets(ctx); err != nil {
		p.sink.Publish(progress.EventError, "Planning produced no tickets", nil)
	}
	return p.Run(ctx)
}
