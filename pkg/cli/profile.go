package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rexliu/m365/pkg/config"
)

func (a *app) initCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.toml into the profile directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output(cmd)
			path := filepath.Join(a.profileDir, config.TOMLFile)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			out.Success("initialized profile at %s", a.profileDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}

func (a *app) diagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Print resolved profile paths and server settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			cfg := a.cfg
			out := a.output(cmd)
			out.KeyValue("profile", a.profileDir)
			out.KeyValue("config", configSource(a.profileDir))
			out.KeyValue("server", strings.TrimSpace(cfg.Server.Command+" "+strings.Join(cfg.Server.Args, " ")))
			if path, err := exec.LookPath(cfg.Server.Command); err != nil {
				out.KeyValue("server binary", "not found on PATH")
			} else {
				out.KeyValue("server binary", path)
			}
			out.KeyValue("login flag", cfg.Server.LoginFlag)
			out.KeyValue("timeout", cfg.Server.Timeout().String())
			out.KeyValue("protocol", cfg.Server.ProtocolVersion)
			out.KeyValue("client", cfg.ClientName+"/"+config.DefaultClientVersion)
			out.KeyValue("time zone", cfg.TimeZone)
			history := "disabled"
			if cfg.History.Enabled {
				history = config.ResolvePath(a.profileDir, cfg.History.DBPath)
			}
			out.KeyValue("history", history)
			out.KeyValue("bridge", cfg.Bridge.Listen)
			return nil
		},
	}
}

// configSource names the file LoadProfile would read, or reports built-in defaults.
func configSource(profileDir string) string {
	for _, name := range []string{config.TOMLFile, config.YAMLFile} {
		path := filepath.Join(profileDir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "defaults (no config file)"
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "m365 %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
