package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect the species corpus",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the resolved corpus file and load statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			snap, err := newCorpus(cfg, log, nil).Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			path := snap.Path
			if path == "" {
				path = "(none found)"
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "path:       %s\n", path)
			fmt.Fprintf(w, "documents:  %d\n", snap.Stats.Documents)
			fmt.Fprintf(w, "fragments:  %d\n", snap.Stats.Fragments)
			fmt.Fprintf(w, "skipped:    %d (malformed %d, keyless %d)\n",
				snap.Stats.Malformed+snap.Stats.Keyless, snap.Stats.Malformed, snap.Stats.Keyless)
			fmt.Fprintf(w, "statuses:   %d explicit, %d inferred\n", snap.Stats.Explicit, snap.Stats.Inferred)
			return nil
		},
	})
	return cmd
}
