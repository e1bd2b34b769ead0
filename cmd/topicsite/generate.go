package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/cognicore/topicsite/internal/watch"
	"github.com/cognicore/topicsite/pkg/topicsite"
)

func generateCmd() *cobra.Command {
	var (
		configPath string
		outDir     string
		watchMode  bool
		debounce   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once, or on every corpus change with --watch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}

			ctx := cmd.Context()
			gen, err := topicsite.New(ctx, cfg, topicsite.Options{})
			if err != nil {
				return err
			}
			defer gen.Close()

			job := func(ctx context.Context) error {
				res, err := gen.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d records, %d topics, %d pages, %d sitemap files, %s written to %s\n",
					res.RunID, res.Records, len(res.Topics), len(res.URLs), res.SitemapChunks,
					humanize.Bytes(uint64(res.Bytes)), cfg.Output.Dir)
				return nil
			}

			if !watchMode {
				return job(ctx)
			}

			if err := job(ctx); err != nil {
				log.Errorf("initial run failed: %v", err)
			}
			w, err := watch.New(cfg.Corpus.Dir, cfg.Corpus.Pattern, debounce)
			if err != nil {
				return fmt.Errorf("watch %s: %w", cfg.Corpus.Dir, err)
			}
			defer w.Close()
			log.Infof("watching %s for changes to %s", cfg.Corpus.Dir, cfg.Corpus.Pattern)
			return w.Run(ctx, job)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (overrides output.dir)")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Regenerate whenever the corpus changes")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before regenerating in watch mode")
	return cmd
}
