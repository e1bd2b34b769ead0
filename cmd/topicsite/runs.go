package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cognicore/topicsite/pkg/topicsite/store"
	"github.com/cognicore/topicsite/pkg/topicsite/store/sqlite"
)

func runsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		keep       int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs from the manifest, optionally pruning old ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openManifest(ctx, configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if keep > 0 {
				removed, err := st.PruneRuns(ctx, keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs\n", removed)
			}

			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tRECORDS\tTERMS\tTOPICS\tSEED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, humanize.RelTime(r.StartedAt, time.Now(), "ago", "from now"),
					r.Records, r.VocabSize, r.TopicCount, r.Seed)
			}
			return tw.Flush()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().IntVar(&keep, "keep", 0, "Delete all but the newest N runs before listing (0 = keep all)")
	cmd.AddCommand(runsShowCmd(&configPath))
	return cmd
}

// runsShowCmd prints the topics of one run, or with --topic the records
// assigned to one of them.
func runsShowCmd(configPath *string) *cobra.Command {
	var topic int

	cmd := &cobra.Command{
		Use:   "show [run-id|latest]",
		Short: "Show the topics of a recorded run (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openManifest(ctx, *configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			id := "latest"
			if len(args) == 1 {
				id = args[0]
			}
			var run store.Run
			if id == "latest" {
				var ok bool
				run, ok, err = st.LatestRun(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("manifest has no runs")
				}
			} else {
				run, err = st.GetRun(ctx, id)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if topic >= 0 {
				assignments, err := st.TopicRecords(ctx, run.ID, topic)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "run %s topic %d: %s records\n", run.ID, topic, humanize.Comma(int64(len(assignments))))
				fmt.Fprintln(tw, "RECORD\tPROBABILITY")
				for _, a := range assignments {
					fmt.Fprintf(tw, "%d\t%.3f\n", a.Record, a.Probability)
				}
				return tw.Flush()
			}

			fmt.Fprintf(out, "run %s started %s, %d records, %d terms, seed %d\n",
				run.ID, run.StartedAt.Format(time.RFC3339), run.Records, run.VocabSize, run.Seed)
			fmt.Fprintln(tw, "TOPIC\tSIZE\tCOHERENCE\tKEYWORDS")
			for _, t := range run.Topics {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n",
					t.ID, t.Size, strconv.FormatFloat(t.Coherence, 'f', 3, 64), strings.Join(t.Keywords, " "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&topic, "topic", -1, "List the records assigned to this topic")
	return cmd
}

func openManifest(ctx context.Context, configPath string) (store.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Output.Manifest == "" {
		return nil, errors.New("output.manifest is not configured")
	}
	return sqlite.OpenSQLite(ctx, cfg.Output.Manifest)
}
