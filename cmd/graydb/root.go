package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-db/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/logging"
)

// envFiles are loaded in order; earlier files win because godotenv never
// overrides variables that are already set.
var envFiles = []string{".env.local", ".env"}

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "graydb",
		Short:         "Database adapters, connection pooling and parity governance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (default $GRAYDB_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(a),
		newPingCmd(a),
		newParityCmd(a),
		newGateCmd(a),
		newEventsCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads .env files, configuration and the logger.
func (a *app) init(cmd *cobra.Command) error {
	if err := loadEnvFiles(envFiles...); err != nil {
		return err
	}

	path := getConfigPath(a.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.log = logging.NewWithWriter(cfg.Logging, version, logOutput(cmd, cfg.Logging.Output))
	a.log.Debug("configuration loaded", "path", path)
	return nil
}

// loadEnvFiles loads each file that exists.
func loadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// getConfigPath resolves the config file: flag, then GRAYDB_CONFIG, then
// the default path if it exists. An empty result means defaults and
// environment only.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("GRAYDB_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// logOutput keeps command output on stdout clean; logs go to the
// command's stderr unless the config asks for stdout.
func logOutput(cmd *cobra.Command, output string) io.Writer {
	if output == "stdout" && cmd.Name() == "serve" {
		return cmd.OutOrStdout()
	}
	return cmd.ErrOrStderr()
}
