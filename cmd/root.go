/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prototyp3d/prototyp3d/internal/debugger"
	"github.com/prototyp3d/prototyp3d/internal/llm"
	"github.com/prototyp3d/prototyp3d/internal/llm/provider"
	"github.com/prototyp3d/prototyp3d/internal/logging"
	"github.com/prototyp3d/prototyp3d/internal/prototyper"
	"github.com/prototyp3d/prototyp3d/internal/sandbox"
	"github.com/prototyp3d/prototyp3d/internal/workspace"
)

var (
	// Global flags
	verbose bool
	logJSON bool
	logFile string

	// LLM flags
	llmProvider string
	llmEndpoint string
	llmModel    string
	llmToken    string
	llmTimeout  time.Duration

	// Workspace flags
	baseDir     string
	templateSrc string
	maxTickets  int

	// Repair loop flags
	debugEnabled   bool
	debugThreshold int
	debugMaxIter   int
	driverModel    string
	failOnDebug    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "p3d",
	Short: "LLM-driven Three.js prototype generator",
	Long: `p3d (prototyp3d) turns a natural-language goal into a working Three.js
prototype. It plans a small set of Jira-style tickets with an LLM, applies
each ticket against a template workspace, and can validate the result in a
disposable sandbox with an automated QA agent that iterates until the app
passes.

Examples:
  p3d create "a solar system with orbiting planets"
  p3d create "a bouncing ball" --name demo --debug
  p3d iterate "make the ball red" --name demo
  p3d serve --addr :5000`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Persistent flags - available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this rotating file")

	// LLM provider flags
	// Default is empty string to enable auto-selection: anthropic > openai > ollama > mock
	rootCmd.PersistentFlags().StringVar(&llmProvider, "llm-provider", "", "LLM provider: anthropic, openai, ollama, http, mock (default: auto-select)")
	rootCmd.PersistentFlags().StringVar(&llmEndpoint, "llm-endpoint", "", "HTTP endpoint for custom LLM provider")
	rootCmd.PersistentFlags().StringVar(&llmModel, "llm-model", "", "Model name for LLM provider")
	rootCmd.PersistentFlags().StringVar(&llmToken, "llm-token", "", "Authentication token for LLM (or env: ANTHROPIC_API_KEY, OPENAI_API_KEY, P3D_LLM_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&llmTimeout, "llm-timeout", 0, "Per-request LLM timeout (default 120s)")

	// Workspace flags
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", workspace.DefaultBaseDir, "Parent directory for generated workspaces")
	rootCmd.PersistentFlags().StringVar(&templateSrc, "template", workspace.DefaultTemplateDir, "Template directory or git URL")
	rootCmd.PersistentFlags().IntVar(&maxTickets, "max-tickets", prototyper.DefaultMaxTickets, "Maximum tickets applied per run")

	// Repair loop flags
	rootCmd.PersistentFlags().BoolVar(&debugEnabled, "debug", false, "Validate each ticket in a sandbox and auto-fix failures")
	rootCmd.PersistentFlags().IntVar(&debugThreshold, "debug-threshold", debugger.DefaultThreshold, "Minimum passing score (0-10)")
	rootCmd.PersistentFlags().IntVar(&debugMaxIter, "debug-max-iterations", debugger.DefaultMaxIterations, "Fix attempts before giving up")
	rootCmd.PersistentFlags().StringVar(&driverModel, "driver-model", "", "Model for the sandbox QA agent")
	rootCmd.PersistentFlags().BoolVar(&failOnDebug, "fail-on-debug", false, "Exit non-zero when validation ends below the threshold")
}

// setupLogging installs the process logger per the global flags
func setupLogging() func() {
	closer := logging.Setup(logging.Options{
		Verbose: verbose,
		JSON:    logJSON,
		File:    logFile,
	})
	return func() { _ = closer.Close() }
}

// buildGateway resolves provider configuration and creates the gateway
// client (falling back to the mock provider when nothing is configured)
func buildGateway() llm.Client {
	provider.RegisterProviders()

	config := llm.ResolveProviderConfig(llmProvider, llmEndpoint, llmModel, llmToken, llmTimeout, verbose)
	config.Token = llm.GetProviderToken(config.Type, config.Token)

	client := llm.NewClient(config)
	slog.Info("gateway ready", "provider", client.Name(), "model", config.Model)
	return client
}

// buildOptions assembles coordinator options from the global flags. The
// repair loop needs an Anthropic key for its driving agent; without one
// it is disabled with a warning rather than failing the run.
func buildOptions() prototyper.Options {
	opts := prototyper.Options{
		BaseDir:    baseDir,
		Template:   templateSrc,
		MaxTickets: maxTickets,
	}

	if debugEnabled {
		key := llmToken
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		if key == "" {
			fmt.Fprintln(os.Stderr, "Warning: --debug requires an Anthropic API key for the QA agent; validation disabled")
		} else {
			opts.Debug = true
			opts.Sandbox = sandbox.NewLocalSandbox()
			opts.Driver = sandbox.NewAnthropicDriver(key, driverModel)
			opts.DebugConfig = debugger.Config{
				Threshold:     debugThreshold,
				MaxIterations: debugMaxIter,
			}
		}
	}

	return opts
}

// reportOutcomes prints a human summary of one run and returns an error
// when --fail-on-debug escalation applies
func reportOutcomes(result *prototyper.RunResult) error {
	fmt.Printf("\nWorkspace: %s\n", result.WorkspacePath)

	belowThreshold := false
	for i, outcome := range result.Outcomes {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(result.Outcomes), outcome.Ticket.Summary)
		fmt.Printf("  → %s\n", outcome.Result.Dialogue)
		for _, path := range outcome.Result.WrittenPaths() {
			fmt.Printf("  → updated %s\n", path)
		}
		if outcome.Repair != nil {
			fmt.Printf("  → validation score %d/10 (iterations: %d)\n",
				outcome.Repair.Score, outcome.Repair.Iterations)
			if !outcome.Repair.Passed {
				belowThreshold = true
			}
		}
	}

	if failOnDebug && belowThreshold {
		return fmt.Errorf("validation ended below the passing threshold")
	}
	return nil
}
