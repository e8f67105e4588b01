package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/formatter"
	"github.com/gnoswap-labs/surgeon/internal/config"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
	"github.com/gnoswap-labs/surgeon/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <term> <term>",
	Short: "Check whether two terms are equivalent",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}

		report, err := runVerify(os.Stdout, cfg.VerifyConfig(), args[0], args[1])
		if err != nil {
			logger.Error("Error verifying terms", zap.Error(err))
			os.Exit(1)
		}
		if report.Result != verify.Equivalent {
			os.Exit(1)
		}
	},
}

func runVerify(w io.Writer, cfg verify.Config, a, b string) (verify.Report, error) {
	left, err := sexpr.ParseTerm(a)
	if err != nil {
		return verify.Report{}, fmt.Errorf("first term: %w", err)
	}
	right, err := sexpr.ParseTerm(b)
	if err != nil {
		return verify.Report{}, fmt.Errorf("second term: %w", err)
	}

	report := verify.NewVerifier(cfg).Check(left, right)
	_, err = fmt.Fprint(w, formatter.FormatReport(left, right, report))
	return report, err
}
