package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/mqtt"
)

func newParityCmd(a *app) *cobra.Command {
	var (
		reference string
		candidate string
		scenarios []string
		save      bool
		strict    bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "parity",
		Short: "Run the parity battery and propose records for unexplained differences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if reference != "" {
				a.cfg.Parity.ReferenceURL = reference
			}
			if candidate != "" {
				a.cfg.Parity.CandidateURL = candidate
			}
			if len(scenarios) > 0 {
				a.cfg.Parity.Scenarios = scenarios
			}

			reg, err := governance.Load(a.cfg.Governance.RegistryPath)
			if err != nil {
				return fmt.Errorf("loading deviation registry: %w", err)
			}
			if !save {
				// Proposals stay in memory only.
				reg = governance.NewRegistry(reg.Records()...)
			}

			influxClient, err := connectInflux(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer influxClient.Close() //nolint:errcheck // Flushes pending writes

			mqttClient, err := connectMQTT(a.cfg, a.log)
			if err != nil {
				return err
			}
			var events *mqtt.Events
			if mqttClient != nil {
				defer mqttClient.Close() //nolint:errcheck // Process exits next
				events = mqtt.NewEvents(mqttClient)
			}

			runParity, err := parityRunner(a.cfg, reg, a.log, events, influxClient)
			if err != nil {
				return err
			}
			rep, err := runParity(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return fmt.Errorf("encoding report: %w", err)
				}
			} else {
				fmt.Fprint(out, rep.Text())
			}

			if strict && !rep.Clean() {
				return &exitError{code: 1, err: errors.New(rep.Summary())}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&reference, "reference", "", "reference adapter url (overrides parity.reference_url)")
	f.StringVar(&candidate, "candidate", "", "candidate adapter url (overrides parity.candidate_url)")
	f.StringSliceVar(&scenarios, "scenario", nil, "run only these scenario ids (repeatable)")
	f.BoolVar(&save, "save", true, "write newly proposed records to the registry file")
	f.BoolVar(&strict, "strict", false, "exit 1 when any difference is uncovered")
	f.BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
