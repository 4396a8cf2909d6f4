// Package commands implements the CLI commands for the mbuild build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/mbuild/internal/app"
	"go.trai.ch/mbuild/internal/build"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/engine/scheduler"
)

// CLI represents the command line interface for mbuild.
type CLI struct {
	app     Application
	jsonLog func(bool)
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, opts app.RunOptions) (*scheduler.Report, error)
	Graph(ctx context.Context, opts app.RunOptions, w io.Writer) error
}

// Option configures a CLI.
type Option func(*CLI)

// WithJSONLog registers the switch the --json-log flag toggles.
func WithJSONLog(fn func(bool)) Option {
	return func(c *CLI) { c.jsonLog = fn }
}

// New creates a new CLI instance with the given app.
func New(a Application, opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "mbuild",
		Short:         "Incremental native build orchestrator for mobile app bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	// Usage mistakes are configuration errors in the exit contract.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return domain.Errorf(domain.CodeInvalidConfiguration, err.Error())
	})

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "mbuild.yaml", "Path to the build description")
	flags.String("cache", "", "Override the cache directory")
	flags.BoolP("force", "f", false, "Rebuild everything, ignoring up-to-date checks")
	flags.StringSlice("abi", nil, "Architectures to build, e.g. armv7,arm64+llvm")
	flags.String("link-mode", "", "Managed linker mode: none, sdk or full")
	flags.String("bitcode", "", "Bitcode mode: none, marker or full")
	flags.StringArray("build-target", nil, "Assembly build target override: assembly=kind[=name]")
	flags.IntP("parallel", "j", 0, "Maximum number of concurrent tasks (default: one per CPU)")
	flags.Bool("fast-relaunch", false, "Build every assembly as a static object")
	flags.Bool("json-log", false, "Write log lines as JSON")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}
	for _, opt := range opts {
		opt(c)
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if c.jsonLog == nil {
			return
		}
		jsonLog, _ := cmd.Flags().GetBool("json-log")
		c.jsonLog(jsonLog)
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newGraphCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func runOptions(cmd *cobra.Command) app.RunOptions {
	flags := cmd.Flags()
	var opts app.RunOptions
	opts.ConfigPath, _ = flags.GetString("config")
	opts.CacheDir, _ = flags.GetString("cache")
	opts.Force, _ = flags.GetBool("force")
	opts.ABIs, _ = flags.GetStringSlice("abi")
	opts.LinkMode, _ = flags.GetString("link-mode")
	opts.Bitcode, _ = flags.GetString("bitcode")
	opts.BuildTargets, _ = flags.GetStringArray("build-target")
	opts.Parallelism, _ = flags.GetInt("parallel")
	opts.FastRelaunch, _ = flags.GetBool("fast-relaunch")
	return opts
}
