package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/formatter"
	"github.com/gnoswap-labs/surgeon/internal/config"
	"github.com/gnoswap-labs/surgeon/internal/watch"
	"github.com/gnoswap-labs/surgeon/surgeon"
)

var (
	expr       string
	budget     time.Duration
	jsonOutput bool
	outPath    string
	selfPlay   int
	watchMode  bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [files...]",
	Short: "Optimize terms and print the verified rewrites",
	Run: func(cmd *cobra.Command, args []string) {
		if expr == "" && len(args) == 0 {
			fmt.Println("error: Please provide term files or an expression with -e")
			os.Exit(1)
		}

		cfg, err := loadConfig(cmd, budget)
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

		if watchMode {
			if err := runWatch(ctx, s, cfg.Budget, args, os.Stdout); err != nil && ctx.Err() == nil {
				logger.Error("Error watching files", zap.Error(err))
				os.Exit(1)
			}
			return
		}

		terms, err := gatherTerms(expr, args)
		if err != nil {
			logger.Error("Error reading terms", zap.Error(err))
			os.Exit(1)
		}
		labels, results, err := runOptimize(ctx, s, terms, cfg.Budget, selfPlay)
		if err != nil {
			logger.Error("Error optimizing terms", zap.Error(err))
			os.Exit(1)
		}
		if err := printResults(os.Stdout, labels, results, jsonOutput, outPath); err != nil {
			logger.Error("Error printing results", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	optimizeCmd.Flags().StringVarP(&expr, "expr", "e", "", "Term to optimize, as an s-expression")
	optimizeCmd.Flags().DurationVar(&budget, "budget", surgeon.DefaultBudget, "Saturation budget per term")
	optimizeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	optimizeCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	optimizeCmd.Flags().IntVar(&selfPlay, "self-play", 0, "Optimize each output again for up to N rounds")
	optimizeCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-optimize files when they change")
}

// loadConfig reads the configuration file and applies command line overrides.
func loadConfig(cmd *cobra.Command, budget time.Duration) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if f := cmd.Flags().Lookup("budget"); f != nil && f.Changed {
		cfg.Budget = budget
	}
	return cfg, nil
}

func gatherTerms(expr string, paths []string) ([]labeledTerm, error) {
	if expr != "" {
		return parseTerms("<expr>", expr)
	}

	files, err := collectFiles(paths)
	if err != nil {
		return nil, err
	}
	var terms []labeledTerm
	for _, f := range files {
		ts, err := readTerms(f)
		if err != nil {
			return nil, err
		}
		terms = append(terms, ts...)
	}
	return terms, nil
}

// runOptimize optimizes terms one by one. With rounds > 0 every improving
// self-play round is reported.
func runOptimize(ctx context.Context, s *surgeon.Surgeon, terms []labeledTerm, budget time.Duration, rounds int) ([]string, []surgeon.Result, error) {
	var (
		labels  []string
		results []surgeon.Result
	)
	for _, lt := range terms {
		if rounds > 0 {
			played, err := s.SelfImprove(ctx, lt.Term, rounds)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", lt.Label, err)
			}
			for i, res := range played {
				labels = append(labels, fmt.Sprintf("%s (round %d)", lt.Label, i+1))
				results = append(results, res)
			}
			if len(played) > 0 {
				continue
			}
		}

		res, err := s.Operate(ctx, lt.Term, budget)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", lt.Label, err)
		}
		labels = append(labels, lt.Label)
		results = append(results, res)
	}
	return labels, results, nil
}

func printResults(w io.Writer, labels []string, results []surgeon.Result, isJSON bool, jsonOutput string) error {
	if !isJSON {
		_, err := fmt.Fprint(w, formatter.FormatResults(labels, results))
		return err
	}

	d, err := formatter.JSON(labels, results)
	if err != nil {
		return err
	}
	if jsonOutput == "" {
		_, err = fmt.Fprintln(w, string(d))
		return err
	}
	return os.WriteFile(jsonOutput, d, 0o644)
}

func runWatch(ctx context.Context, s *surgeon.Surgeon, budget time.Duration, paths []string, out io.Writer) error {
	w, err := watch.New(logger, func(ctx context.Context, path string) {
		terms, err := readTerms(path)
		if err != nil {
			logger.Error("Error reading terms", zap.String("path", path), zap.Error(err))
			return
		}
		labels, results, err := runOptimize(ctx, s, terms, budget, 0)
		if err != nil {
			logger.Error("Error optimizing terms", zap.String("path", path), zap.Error(err))
			return
		}
		if err := printResults(out, labels, results, false, ""); err != nil {
			logger.Error("Error printing results", zap.Error(err))
		}
	}, extensions()...)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(paths...); err != nil {
		return err
	}
	fmt.Fprintf(out, "watching %d path(s), press Ctrl+C to stop\n", len(paths))
	return w.Run(ctx)
}
