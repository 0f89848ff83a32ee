package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPingCmd(a *app) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured database and verify it responds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url != "" {
				a.cfg.Database.URL = url
			}
			start := time.Now()
			p, err := openPool(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer p.Close(context.Background()) //nolint:errcheck // Process exits next

			s := p.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "ok driver=%s url=%s open=%d elapsed=%s\n",
				s.Driver, p.Manager().Options().Redacted(), s.Open, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "database url (overrides database.url)")
	return cmd
}
