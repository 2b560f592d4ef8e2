// Command nhub sends notifications to issue trackers and chat services.
// Every invocation prints exactly one JSON line on stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsnotify/notification-hub/internal/config"
	"github.com/opsnotify/notification-hub/internal/debug"
	"github.com/opsnotify/notification-hub/internal/telemetry"
)

// app holds the state shared by one command tree.
type app struct {
	in  io.Reader
	out io.Writer

	configFile string
	verbose    bool

	// helpFor is the command whose help was printed, if any.
	helpFor string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}

// run executes nhub with args and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) int {
	a := &app{in: stdin, out: stdout}
	root := a.newRootCmd()
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(os.Stderr)
	root.SetErr(os.Stderr)

	err := root.ExecuteContext(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	telemetry.Shutdown(flushCtx)
	cancel()

	if err != nil {
		debug.Logger().Debug("command failed", "error", err)
		outputJSONError(stdout, err)
		return 1
	}
	if a.helpFor != "" {
		// Help text went to stderr; stdout still gets its one line.
		if err := outputJSON(stdout, map[string]string{"status": "help", "command": a.helpFor}); err != nil {
			return 1
		}
	}
	return 0
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nhub",
		Short: "nhub - notification hub for issue trackers and chat",
		Long: `Send notifications to Jira and Slack from scripts and pipelines.

Configuration is read from flags, NHUB_* environment variables and an
optional YAML file (--config, ./.nhub.yaml or ~/.config/nhub/config.yaml).
Tokens may also come from files under secrets-dir or the OS keyring.`,
		Args:          cobra.NoArgs,
		RunE:          requireSubcommand,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Initialize(a.configFile); err != nil {
				return err
			}
			debug.SetVerbose(a.verbose || config.GetBool("verbose"))
			if f := config.ConfigFileUsed(); f != "" {
				debug.Logf("using config file %s", f)
			}
			if err := telemetry.Init(cmd.Context(), "nhub", Version); err != nil {
				debug.Logger().Warn("telemetry disabled", "error", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default: ./.nhub.yaml, ~/.config/nhub/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	// Flag errors surface as {"error": ...} like any other failure.
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return err })
	root.CompletionOptions.DisableDefaultCmd = true

	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
		a.helpFor = c.CommandPath()
	})

	root.AddCommand(
		a.newJiraCmd(),
		a.newSlackCmd(),
		a.newSendCmd(),
		a.newSecretsCmd(),
		a.newVersionCmd(),
	)
	return root
}

// requireSubcommand is the RunE of every command group, so a bare group
// fails instead of exiting silently.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	var names []string
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() {
			names = append(names, c.Name())
		}
	}
	return fmt.Errorf("a subcommand is required (%s %s)", cmd.CommandPath(), strings.Join(names, "|"))
}
