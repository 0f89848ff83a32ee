package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-db/internal/governance"
)

func newGateCmd(a *app) *cobra.Command {
	var (
		registry string
		promote  bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate the release gate over the deviation registry",
		Long: `Evaluate the release gate over the deviation registry.

Exit status is 1 when any record is rejected or the registry is invalid.
Proposed records only fail the gate with --promote.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.Governance.RegistryPath
			if registry != "" {
				path = registry
			}
			reg, err := governance.Load(path)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			res, err := governance.Evaluate(reg.Records())
			if err != nil {
				return &exitError{code: 1, err: err}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return fmt.Errorf("encoding gate result: %w", err)
				}
			} else {
				fmt.Fprint(out, res.Report())
			}

			influxClient, err := connectInflux(cmd.Context(), a.cfg, a.log)
			if err != nil {
				a.log.Warn("gate result not recorded", "error", err)
			}
			influxClient.WriteGateResult(res)
			influxClient.Close() //nolint:errcheck // Flushes pending writes

			if code := res.ExitCode(promote); code != 0 {
				return &exitError{code: code, err: errors.New(res.Summary())}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&registry, "registry", "", "registry file (overrides governance.registry_path)")
	f.BoolVar(&promote, "promote", false, "treat proposed records as blocking")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
