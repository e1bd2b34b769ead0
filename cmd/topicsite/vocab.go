package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cognicore/topicsite/internal/corpus"
	"github.com/cognicore/topicsite/pkg/topicsite/config"
	"github.com/cognicore/topicsite/pkg/topicsite/ingest"
)

type vocabReport struct {
	Records        int         `json:"records"`
	VocabularySize int         `json:"vocabulary_size"`
	Tokens         int         `json:"tokens"`
	EmptyRecords   int         `json:"empty_records"`
	PrunedCommon   int         `json:"pruned_too_common"`
	PrunedRare     int         `json:"pruned_too_rare"`
	HighDFTerms    []termEntry `json:"high_df_terms"`
}

type termEntry struct {
	Term      string  `json:"term"`
	DocFreq   int     `json:"doc_freq"`
	DFPercent float64 `json:"df_percent"`
}

// vocabCmd reports what the vectorizer keeps, to help tune the frequency
// thresholds and stoplist before fitting a model.
func vocabCmd() *cobra.Command {
	var (
		configPath string
		top        int
	)

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Report vocabulary size and the most widespread terms as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			records, err := corpus.Load(cmd.Context(), cfg.Corpus.Dir, corpus.LoadOptions{
				Pattern:      cfg.Corpus.Pattern,
				Encoding:     cfg.Corpus.Encoding,
				AuthorColumn: cfg.Corpus.AuthorColumn,
				TextColumn:   cfg.Corpus.TextColumn,
				HasHeader:    cfg.Corpus.HasHeader,
				Limit:        cfg.Corpus.Limit,
			})
			if err != nil {
				return err
			}

			comp, err := config.NewLoader(cfg.Vectorizer).Load()
			if err != nil {
				return err
			}
			texts := make([]string, len(records))
			for i, r := range records {
				texts[i] = r.Text
			}
			vec := &ingest.Vectorizer{
				Tokenizer:       comp.Tokenizer,
				MaxDocFreqRatio: cfg.Vectorizer.MaxDocFreqRatio,
				MinDocFreqCount: cfg.Vectorizer.MinDocFreqCount,
				Workers:         cfg.Pipeline.Workers,
			}
			vocab, vectors, err := vec.FitTransform(cmd.Context(), texts)
			if err != nil {
				return err
			}

			report := vocabReport{
				Records:        len(records),
				VocabularySize: vocab.Len(),
				PrunedCommon:   vocab.Pruned.TooCommon,
				PrunedRare:     vocab.Pruned.TooRare,
				HighDFTerms:    topDocFreq(vocab, len(records), top),
			}
			for _, v := range vectors {
				n := v.Tokens()
				report.Tokens += n
				if n == 0 {
					report.EmptyRecords++
				}
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().IntVar(&top, "top", 20, "Number of high document-frequency terms to list")
	return cmd
}

func topDocFreq(vocab *ingest.Vocabulary, docs, limit int) []termEntry {
	entries := make([]termEntry, vocab.Len())
	for i := range entries {
		df := vocab.DocFreq(i)
		entries[i] = termEntry{
			Term:      vocab.Term(i),
			DocFreq:   df,
			DFPercent: 100 * float64(df) / float64(docs),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DocFreq > entries[j].DocFreq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
