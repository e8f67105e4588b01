package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/surgeon"
)

var (
	batchBudget     time.Duration
	batchJSONOutput bool
	batchOutPath    string
)

// batchOptimizer is the part of surgeon.Surgeon used by the batch command.
type batchOptimizer interface {
	OperateBatch(ctx context.Context, terms []ir.Term, total time.Duration) ([]surgeon.Result, error)
}

var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Optimize every term of the given files and directories concurrently",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		cfg, err := loadConfig(cmd, batchBudget)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		s, closeSurgeon, err := newSurgeon(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize surgeon", zap.Error(err))
		}
		defer closeSurgeon()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		files, err := collectFiles(args)
		if err != nil {
			logger.Error("Error collecting files", zap.Error(err))
			os.Exit(1)
		}

		var progress io.Writer = io.Discard
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			progress = os.Stderr
		}
		labels, results, err := runBatch(ctx, s, files, cfg.Budget, progress)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}
		if err := printResults(os.Stdout, labels, results, batchJSONOutput, batchOutPath); err != nil {
			logger.Error("Error printing results", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	batchCmd.Flags().DurationVar(&batchBudget, "budget", surgeon.DefaultBudget, "Saturation budget per term")
	batchCmd.Flags().BoolVar(&batchJSONOutput, "json", false, "Output results in JSON format")
	batchCmd.Flags().StringVarP(&batchOutPath, "output", "o", "", "Output path (when using JSON)")
}

// runBatch optimizes the terms of each file as one batch, so a file with n
// terms gets n times the per-term budget.
func runBatch(ctx context.Context, opt batchOptimizer, files []string, perTerm time.Duration, progress io.Writer) ([]string, []surgeon.Result, error) {
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("optimizing"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	defer bar.Finish()

	var (
		labels  []string
		results []surgeon.Result
	)
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		terms, err := readTerms(f)
		if err != nil {
			return nil, nil, err
		}
		batch := make([]ir.Term, len(terms))
		for i, lt := range terms {
			batch[i] = lt.Term
			labels = append(labels, lt.Label)
		}

		out, err := opt.OperateBatch(ctx, batch, perTerm*time.Duration(len(batch)))
		if len(out) != len(batch) {
			if err == nil {
				err = fmt.Errorf("expected %d results, got %d", len(batch), len(out))
			}
			return nil, nil, fmt.Errorf("%s: %w", f, err)
		}
		if err != nil {
			logger.Warn("Some terms failed", zap.String("path", f), zap.Error(err))
		}
		results = append(results, out...)
		_ = bar.Add(1)
	}
	return labels, results, nil
}
