package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot(os.Stdout)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command with every subcommand attached.
func buildRoot(out io.Writer) *cobra.Command {
	globalFlags := &GlobalFlags{}
	webwatchCommand := command{globals: globalFlags, out: out}

	root := createRootCommand(globalFlags)
	root.SetOut(out)

	root.AddCommand(
		createAddCommand(webwatchCommand),
		createListCommand(webwatchCommand),
		createEditCommand(webwatchCommand),
		createRemoveCommand(webwatchCommand),
		createToggleCommand(webwatchCommand),
		createEnableCommand(webwatchCommand, true),
		createEnableCommand(webwatchCommand, false),
		createCheckCommand(webwatchCommand),
		createStartCommand(webwatchCommand),
		createServeCommand(webwatchCommand),
		createStopCommand(webwatchCommand),
		createStatusCommand(webwatchCommand),
		createTUICommand(webwatchCommand),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "webwatch",
		Short: "Watch web pages for keywords",
		Long: `webwatch periodically fetches web pages, detects content changes and
raises a notification when configured keywords appear.

Examples:
  webwatch add --url=https://example.com/deals --keywords="sale,discount" --interval=10m
  webwatch list
  webwatch start                    # Run in the foreground
  webwatch serve --daemonize        # Run in the background with the status API
  webwatch status`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML settings file (optional)")
	root.PersistentFlags().StringVar(&flags.RegistryPath, "registry", "", "path to the watcher registry JSON")

	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func createAddCommand(webwatchCommand command) *cobra.Command {
	flags := &AddFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a watcher",
		Long: `Add a watcher for a URL. Keywords are comma separated and matched
case-insensitively. The interval is whole seconds or a duration (5m, 1h).

Examples:
  webwatch add --url=https://example.com --keywords="in stock"
  webwatch add --url=https://example.com/news --keywords="release,launch" --interval=600`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.Add(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.URL, "url", "", "URL to watch (required)")
	cmd.Flags().StringVar(&flags.Keywords, "keywords", "", "comma separated keywords")
	cmd.Flags().StringVar(&flags.Interval, "interval", "", "check interval (default 5m)")
	if err := cmd.MarkFlagRequired("url"); err != nil {
		panic(err)
	}
	return cmd
}

func createListCommand(webwatchCommand command) *cobra.Command {
	flags := &ListFlags{}
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List watchers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.List(*flags)
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print the registry records as JSON")
	return cmd
}

func createEditCommand(webwatchCommand command) *cobra.Command {
	flags := &EditFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a watcher's URL, keywords or interval",
		Long: `Change a watcher. Only the flags given are applied; the id may be any
unique prefix.

Examples:
  webwatch edit 3f2c --keywords="sale,clearance"
  webwatch edit 3f2c --interval=1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := *flags
			f.SetURL = cmd.Flags().Changed("url")
			f.SetKeywords = cmd.Flags().Changed("keywords")
			f.SetInterval = cmd.Flags().Changed("interval")
			return webwatchCommand.Edit(args[0], f)
		},
	}
	cmd.Flags().StringVar(&flags.URL, "url", "", "new URL")
	cmd.Flags().StringVar(&flags.Keywords, "keywords", "", "new comma separated keywords (empty clears)")
	cmd.Flags().StringVar(&flags.Interval, "interval", "", "new check interval")
	return cmd
}

func createRemoveCommand(webwatchCommand command) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a watcher and its cached snapshot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.Remove(args[0])
		},
	}
}

func createToggleCommand(webwatchCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a watcher between enabled and disabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.Toggle(args[0])
		},
	}
}

func createEnableCommand(webwatchCommand command, on bool) *cobra.Command {
	use, short := "enable <id>", "Enable a watcher"
	if !on {
		use, short = "disable <id>", "Disable a watcher"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.SetEnabled(args[0], on)
		},
	}
}

func createCheckCommand(webwatchCommand command) *cobra.Command {
	flags := &CheckFlags{}
	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Run one check cycle now",
		Long: `Fetch the watcher's URL once, compare it with the cached snapshot and
notify on keyword matches, exactly as the engine would. last_checked is
updated only when the cycle succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return webwatchCommand.Check(ctx, args[0], *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print the cycle result as JSON")
	return cmd
}

func createStartCommand(webwatchCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run all enabled watchers in the foreground",
		Long: `Run one check loop per enabled watcher until interrupted (Ctrl+C).
Each loop waits a full interval before its first check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return webwatchCommand.Start(ctx)
		},
	}
}

func createServeCommand(webwatchCommand command) *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the watcher daemon with the status API",
		Long: `Run all enabled watchers together with the read-only status API and,
when enabled, the Prometheus metrics endpoint.

Examples:
  webwatch serve                          # Foreground
  webwatch serve --daemonize              # Background (pidfile from [server].pidfile)
  webwatch serve --daemonize --logfile=/tmp/webwatch.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return webwatchCommand.Serve(ctx, *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&flags.LogFile, "logfile", "", "redirect daemon output to file")
	cmd.Flags().StringVar(&flags.PidFile, "pidfile", "", "pidfile path (default [server].pidfile or next to the registry)")
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "status API listen address (default [server].listen)")
	return cmd
}

func createStopCommand(webwatchCommand command) *cobra.Command {
	flags := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.Stop(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.PidFile, "pidfile", "", "pidfile path")
	cmd.Flags().DurationVar(&flags.Wait, "wait", 5*time.Second, "how long to wait for the daemon to exit")
	return cmd
}

func createStatusCommand(webwatchCommand command) *cobra.Command {
	flags := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Show daemon and watcher status",
		Long: `Query the status API of a running daemon. Without a reachable API the
pidfile is used to tell whether the daemon runs.

Examples:
  webwatch status
  webwatch status 3f2c
  webwatch status --api-url=http://host:8787/api`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return webwatchCommand.Status(ref, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon API URL (e.g. http://host:8787/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 3*time.Second, "request timeout")
	cmd.Flags().StringVar(&flags.PidFile, "pidfile", "", "pidfile path")
	return cmd
}

func createTUICommand(webwatchCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse, toggle and delete watchers interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return webwatchCommand.TUI()
		},
	}
}
