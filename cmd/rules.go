package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/internal/rules"
)

var exportPath string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rewrite rules in use",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd, 0)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		s, closeSurgeon, err := newSurgeon(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize surgeon", zap.Error(err))
		}
		defer closeSurgeon()

		all := s.Rules().All()
		if exportPath != "" {
			if err := exportRules(exportPath, all); err != nil {
				logger.Error("Error exporting rules", zap.Error(err))
				os.Exit(1)
			}
			fmt.Printf("Exported %d rules to %s\n", len(all), exportPath)
			return
		}
		if err := printRules(os.Stdout, all); err != nil {
			logger.Error("Error printing rules", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	rulesCmd.Flags().StringVar(&exportPath, "export", "", "Write the rules to a YAML file instead of listing them")
}

func printRules(w io.Writer, all []rules.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPATTERN\tREWRITE\tGUARDS")
	for _, r := range all {
		guards := lo.Map(r.Guards, func(g rules.Guard, _ int) string { return g.String() })
		if len(guards) == 0 {
			guards = []string{"-"}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Name, r.Pattern, r.Rewrite, strings.Join(guards, ", "))
	}
	return tw.Flush()
}

func exportRules(path string, all []rules.Rule) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return rules.Encode(f, all)
}
