// Command topicsite turns a corpus of short posts into a static site
// browsable by discovered topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/cognicore/topicsite/pkg/topicsite/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "topicsite"
)

func main() {
	defer log.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Flush()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Generate a topic-browsable static site from a corpus of short posts",
		Long: `topicsite loads author/text records from CSV files, discovers latent
topics with LDA, groups every record under its primary topic and writes a
paginated static site with a chunked sitemap.`,
		SilenceUsage: true,
	}

	// glog registers its flags on the standard flag set
	if f := flag.Lookup("logtostderr"); f != nil {
		f.DefValue = "true"
		_ = f.Value.Set("true")
	}
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(generateCmd(), vocabCmd(), runsCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

// loadConfig reads path on top of the defaults, or returns the defaults
// when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
