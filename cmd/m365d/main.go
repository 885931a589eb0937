package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rexliu/m365/pkg/bridge"
	"github.com/rexliu/m365/pkg/config"
	"github.com/rexliu/m365/pkg/gateway"
	"github.com/rexliu/m365/pkg/history/sqlite"
	"github.com/rexliu/m365/pkg/logging"
)

func main() {
	var (
		profile string
		listen  string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           "m365d",
		Short:         "Serve m365 tool calls over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), profile, listen, verbose, logging.New("m365d"))
		},
	}
	cmd.Flags().StringVar(&profile, "profile", config.DefaultProfileDir(), "Profile directory (env "+config.ProfileEnv+")")
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "m365d: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, profileDir, listen string, verbose bool, logger *logging.Base) error {
	cfg, err := config.LoadProfile(profileDir)
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	if verbose {
		logger.SetVerbose()
	}
	if listen == "" {
		listen = cfg.Bridge.Listen
	}

	runner := gateway.NewProcessRunner(cfg.Server.Command, cfg.Server.Args, cfg.Server.EnvList(), logger)
	opts := []gateway.Option{
		gateway.WithTimeout(cfg.Server.Timeout()),
		gateway.WithClientInfo(cfg.ClientName, config.DefaultClientVersion),
		gateway.WithProtocolVersion(cfg.Server.ProtocolVersion),
		gateway.WithLogger(logger),
	}
	var history bridge.HistorySource
	if cfg.History.Enabled {
		store, err := sqlite.Open(config.ResolvePath(profileDir, cfg.History.DBPath))
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		opts = append(opts, gateway.WithRecorder(store))
		history = store
	}
	client := gateway.NewClient(runner, opts...)
	srv := bridge.New(client, history, cfg.Bridge, logger)

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	if cfg.Bridge.Token == "" {
		logger.Warn("bridge token not set; any local process can call tools")
	}
	logger.WithField("addr", ln.Addr().String()).Info("m365d ready")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return nil
	})
	return g.Wait()
}
