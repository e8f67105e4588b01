package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/formatter"
)

var canonExpr string

var canonCmd = &cobra.Command{
	Use:   "canon [files...]",
	Short: "Print the canonical form and soul of terms",
	Run: func(cmd *cobra.Command, args []string) {
		if canonExpr == "" && len(args) == 0 {
			fmt.Println("error: Please provide term files or an expression with -e")
			os.Exit(1)
		}

		terms, err := gatherTerms(canonExpr, args)
		if err != nil {
			logger.Error("Error reading terms", zap.Error(err))
			os.Exit(1)
		}
		if err := printCanonical(os.Stdout, terms); err != nil {
			logger.Error("Error printing canonical forms", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	canonCmd.Flags().StringVarP(&canonExpr, "expr", "e", "", "Term to canonicalize, as an s-expression")
}

func printCanonical(w io.Writer, terms []labeledTerm) error {
	for _, lt := range terms {
		if _, err := fmt.Fprintf(w, "%s\n%s", lt.Label, formatter.FormatCanonical(lt.Term)); err != nil {
			return err
		}
	}
	return nil
}
