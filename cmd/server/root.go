package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what PersistentPreRunE resolved for the subcommand.
type app struct {
	cfg    Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "hierarchy-engine",
		Short:         "Organizational hierarchy server and operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("db", "hierarchy.db", "SQLite database path (\":memory:\" for in-memory)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("source", "", "Base URL of a remote data source; overrides --db for engine commands")
	pf.Duration("http-timeout", 0, "Timeout for remote data source requests")

	cmd.AddCommand(
		newServeCmd(a),
		newSeedCmd(a),
		newSuggestCmd(a),
		newAssignCmd(a),
		newTagCmd(a),
		newUplineCmd(a),
		newDownlineCmd(a),
	)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
