// Package cli implements the m365 command tree. Each leaf command builds a
// parameter mapping, sends it through the gateway and prints the reply as JSON.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rexliu/m365/pkg/config"
	"github.com/rexliu/m365/pkg/core"
	"github.com/rexliu/m365/pkg/gateway"
	"github.com/rexliu/m365/pkg/history/sqlite"
	"github.com/rexliu/m365/pkg/logging"
)

// Version is reported by `m365 version`; overridden at link time.
var Version = "dev"

// Caller performs one tool call and returns the normalized reply.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) any
}

// Launcher runs the server interactively with extra arguments.
type Launcher interface {
	Launch(ctx context.Context, extra ...string) error
}

// Options wires the command tree to its environment. Zero values select the
// process's own streams and a gateway built from the profile's configuration.
type Options struct {
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Caller   Caller
	Launcher Launcher
	// Config skips loading config.toml from the profile directory.
	Config *config.ProfileConfig
}

// errShowHelp marks a command that printed its help instead of running.
var errShowHelp = errors.New("help shown")

type app struct {
	opts Options

	profileDir string
	noColor    bool
	verbose    bool

	cfg      *config.ProfileConfig
	log      *logging.Base
	caller   Caller
	launcher Launcher
	history  *sqlite.Store
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	a := &app{opts: opts, log: logging.New("cli")}
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errShowHelp) {
		fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
		if cmd != nil {
			cmd.SetOut(opts.Stderr)
			_ = cmd.Usage()
		}
	}
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "m365",
		Short: "Microsoft 365 from the command line",
		Long: `m365 drives a Microsoft 365 MCP server over stdio.

Every command starts the server, sends one tool call, prints the reply as JSON
and exits. Remote errors are printed the same way and do not change the exit status.

Quick Start:
  m365 login                 Sign in with a device code
  m365 mail list --top 5     Show the five newest messages
  m365 calendar list         Show upcoming events`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE:              showHelp,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				a.log.SetVerbose()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.profileDir, "profile", config.DefaultProfileDir(), "Profile directory (env "+config.ProfileEnv+")")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug details to stderr")

	root.AddCommand(
		a.loginCommand(),
		a.toolCommand("status", "Check authentication status", core.ToolVerifyLogin),
		a.toolCommand("accounts", "List cached accounts", core.ToolListAccounts),
		a.toolCommand("user", "Show the signed-in user", core.ToolGetCurrentUser),
		a.mailCommand(),
		a.calendarCommand(),
		a.filesCommand(),
		a.tasksCommand(),
		a.contactsCommand(),
		a.callCommand(),
		a.initCommand(),
		a.diagCommand(),
		a.historyCommand(),
		a.versionCommand(),
	)
	return root
}

// showHelp is the RunE of the root and of every command group. Groups accept
// arbitrary arguments so a bare group and an unknown action both land here.
func showHelp(cmd *cobra.Command, args []string) error {
	_ = cmd.Help()
	return errShowHelp
}

func groupCommand(use, short string, children ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE:  showHelp,
	}
	cmd.AddCommand(children...)
	return cmd
}

// load resolves configuration and builds the gateway on first use.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg := a.opts.Config
	if cfg == nil {
		loaded, err := config.LoadProfile(a.profileDir)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := a.log.Configure(cfg.Logging); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	if a.verbose {
		a.log.SetVerbose()
	}
	a.cfg = cfg

	var runner *gateway.ProcessRunner
	if a.opts.Caller == nil || a.opts.Launcher == nil {
		runner = gateway.NewProcessRunner(cfg.Server.Command, cfg.Server.Args, cfg.Server.EnvList(), a.log)
	}
	a.launcher = a.opts.Launcher
	if a.launcher == nil {
		a.launcher = runner
	}
	a.caller = a.opts.Caller
	if a.caller == nil {
		opts := []gateway.Option{
			gateway.WithTimeout(cfg.Server.Timeout()),
			gateway.WithClientInfo(cfg.ClientName, config.DefaultClientVersion),
			gateway.WithProtocolVersion(cfg.Server.ProtocolVersion),
			gateway.WithLogger(a.log),
		}
		if cfg.History.Enabled {
			store, err := a.openHistory()
			if err != nil {
				a.log.WithError(err).Warn("history disabled")
			} else {
				opts = append(opts, gateway.WithRecorder(store))
			}
		}
		a.caller = gateway.NewClient(runner, opts...)
	}
	return nil
}

func (a *app) openHistory() (*sqlite.Store, error) {
	if a.history != nil {
		return a.history, nil
	}
	path := config.ResolvePath(a.profileDir, a.cfg.History.DBPath)
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("init history %s: %w", filepath.Base(path), err)
	}
	a.history = store
	return store, nil
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.WithError(err).Warn("close history")
		}
	}
}

// invoke sends one tool call and prints whatever comes back.
func (a *app) invoke(cmd *cobra.Command, method string, params map[string]any) error {
	if err := a.load(); err != nil {
		return err
	}
	result := a.caller.Call(cmd.Context(), method, params)
	return printJSON(cmd.OutOrStdout(), result)
}

func (a *app) output(cmd *cobra.Command) *Output {
	return NewOutput(cmd.OutOrStdout(), a.noColor)
}
