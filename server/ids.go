package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sohio.net/flake/internal/httpapi"
	"sohio.net/flake/internal/snowflake"
)

func (a *app) newNextCmd() *cobra.Command {
	var (
		count  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print new IDs, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := snowflake.NewGenerator(a.cfg.WorkerID, a.cfg.DatacenterID)
			if err != nil {
				return err
			}

			ids, err := gen.NextIDs(count)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range ids {
				if asJSON {
					if err := json.NewEncoder(out).Encode(httpapi.Decoded{ID: id, Meta: snowflake.Decode(id)}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of IDs to issue")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print each ID decoded, as JSON")
	return cmd
}

func (a *app) newDecodeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Split IDs into time, datacenter, worker and sequence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				id, err := snowflake.ParseID(arg)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", arg, err)
				}
				m := snowflake.Decode(id)

				if asJSON {
					if err := json.NewEncoder(out).Encode(httpapi.Decoded{ID: id, Meta: m}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(out, "%d\ttime=%s datacenter=%d worker=%d sequence=%d offset=%d\n",
					id, m.GenerationTime.UTC().Format(time.RFC3339Nano), m.DatacenterID, m.WorkerID, m.Sequence, m.Offset)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
