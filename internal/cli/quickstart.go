package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/miniflow/miniflow/engine/collector"
	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/infra/repo"
	"github.com/miniflow/miniflow/engine/plan"
	"github.com/miniflow/miniflow/engine/reference"
	"github.com/miniflow/miniflow/engine/scheduler"
	"github.com/miniflow/miniflow/engine/trigger"
	"github.com/miniflow/miniflow/engine/worker"
	"github.com/miniflow/miniflow/engine/workflow"
	"github.com/miniflow/miniflow/engine/workspace"
	"github.com/miniflow/miniflow/pkg/config"
	"github.com/miniflow/miniflow/pkg/logger"
)

// newQuickstartCmd returns the `quickstart` command: it reads a declarative
// YAML workflow file, materializes it into a fresh Freemium workspace,
// fires its default trigger, and drives the scheduler/collector loops
// in-process until the resulting Execution reaches a terminal state or the
// --timeout elapses.
func newQuickstartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quickstart <workflow.yaml>",
		Short: "Load, run, and report on a single workflow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newProcessLogger(cmd)
			ctx := logger.ContextWithLogger(cmd.Context(), log)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx = config.ContextWithConfig(ctx, cfg)

			repos, cleanup, err := repo.NewRepos(ctx, cfg)
			if err != nil {
				return fmt.Errorf("quickstart: %w", err)
			}
			defer cleanup()

			doc, err := workflow.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("quickstart: %w", err)
			}

			ws, err := workspace.New(core.MustNewID(core.PrefixUser), doc.Name, slugify(doc.Name), plan.Freemium)
			if err != nil {
				return fmt.Errorf("quickstart: %w", err)
			}
			if err := repos.Workspaces.Create(ctx, ws); err != nil {
				return fmt.Errorf("quickstart: create workspace: %w", err)
			}
			doc.WorkspaceID = ws.ID.String()

			loaded, err := workflow.Build(ctx, doc, func(ctx context.Context, name string) (core.ID, error) {
				s, err := repos.Scripts.GetByName(ctx, name)
				if err != nil {
					return "", err
				}
				return s.ID, nil
			})
			if err != nil {
				return fmt.Errorf("quickstart: %w", err)
			}
			loaded.Workflow.Status = workflow.StatusActive
			if err := repos.Workflows.Create(ctx, loaded.Workflow); err != nil {
				return fmt.Errorf("quickstart: create workflow: %w", err)
			}
			for _, n := range loaded.Nodes {
				if err := repos.Nodes.Create(ctx, n); err != nil {
					return fmt.Errorf("quickstart: create node %s: %w", n.Name, err)
				}
			}
			for _, e := range loaded.Edges {
				if err := repos.Edges.Create(ctx, e); err != nil {
					return fmt.Errorf("quickstart: create edge: %w", err)
				}
			}
			var fireTrigger *trigger.Trigger
			for _, t := range loaded.Triggers {
				if err := repos.Triggers.Create(ctx, t); err != nil {
					return fmt.Errorf("quickstart: create trigger %s: %w", t.Name, err)
				}
				if fireTrigger == nil || t.IsDefault {
					fireTrigger = t
				}
			}

			e, err := execution.New(ws.ID, loaded.Workflow.ID, fireTrigger.ID, map[string]any{}, time.Hour)
			if err != nil {
				return fmt.Errorf("quickstart: %w", err)
			}
			planner := execution.NewPlanner(repos.Executions, repos.Executions)
			if err := planner.Plan(ctx, e); err != nil {
				return fmt.Errorf("quickstart: plan execution: %w", err)
			}
			log.Info("execution planned", "execution_id", e.ID, "workflow", loaded.Workflow.Name)

			return driveToTerminal(cmd, ctx, repos, e.ID)
		},
	}
	cmd.Flags().Duration("timeout", 2*time.Minute, "how long to drive the loops before giving up")
	return cmd
}

// driveToTerminal runs the scheduler and collector loops in-process,
// polling the Execution until it reaches a terminal status or --timeout
// elapses.
func driveToTerminal(cmd *cobra.Command, ctx context.Context, repos *repo.Repos, executionID core.ID) error {
	log := logger.FromContext(ctx)
	timeout, _ := cmd.Flags().GetDuration("timeout")
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := worker.NewPyRunner("python3")
	adapter := worker.NewAdapter(runner, worker.DefaultRetryConfig(), 64)

	resolver := reference.NewResolver(repos.Executions, repos.Reference, repos.Reference, repos.DatabaseReference, repos.Reference)
	schedLoop := scheduler.NewLoop(repos.Executions, resolver, adapter, scheduler.DefaultConfig())
	finalizer := execution.NewFinalizer(repos.Executions)
	collectLoop := collector.NewLoop(repos.Executions, finalizer, adapter)

	go schedLoop.Run(runCtx)
	go collectLoop.Run(runCtx, 100*time.Millisecond)
	defer schedLoop.Stop()
	defer collectLoop.Stop()

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-runCtx.Done():
			return fmt.Errorf("quickstart: timed out waiting for execution %s to finish", executionID)
		case <-ticker.C:
			e, err := repos.Executions.LoadExecution(ctx, executionID)
			if err != nil {
				return fmt.Errorf("quickstart: %w", err)
			}
			if e.Status.IsTerminal() {
				log.Info("execution finished", "execution_id", e.ID, "status", e.Status)
				for node, result := range e.Results {
					log.Info("node result", "node", node, "status", result.Status)
				}
				return nil
			}
		}
	}
}

// slugify is a minimal best-effort slug for the ad-hoc workspace quickstart
// creates; it does not need to be pretty, only ValidateSlug-legal.
func slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r-'A'+'a')
		case r == ' ' || r == '_' || r == '-':
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "quickstart"
	}
	return string(out)
}
