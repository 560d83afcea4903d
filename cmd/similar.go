package cmd

import (
	"errors"
	"fmt"

	"github.com/bimmerbailey/laxa/internal/analyzer"
	"github.com/bimmerbailey/laxa/internal/linehash"
	"github.com/bimmerbailey/laxa/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var similarCmd = &cobra.Command{
	Use:   "similar [flags] --to TEXT <file|glob|->...",
	Short: "Find the records closest to a piece of text",
	Long: `Hash the probe text and rank every record by the distance of its
digest to the probe's, closest first.

The probe must be long and varied enough to hash; a few words usually
are not.

Examples:
  laxa similar --to "$(sed -n 120p app.log | cut -d' ' -f2-)" app.log
  laxa similar --top 5 --to "user login failed for admin from 10.0.0.7 port 2201 ssh2" "logs/*.log"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().String("to", "", "text to compare records against (required)")
	similarCmd.Flags().IntP("top", "n", 10, "number of matches to show (0 for all)")
	_ = similarCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	to, _ := cmd.Flags().GetString("to")
	topN, _ := cmd.Flags().GetInt("top")

	if to == "" {
		return errors.New("--to must not be empty")
	}

	probe, err := linehash.FromText(primitive, to)
	if err != nil {
		return fmt.Errorf("probe text cannot be hashed: %w", err)
	}

	results, logger, err := hashFiles(cmd, args)
	if err != nil {
		return err
	}
	logger.Info("ranking records", "probe", probe.String(), "records", len(results))

	matches := analyzer.New(primitive).Rank(results, probe, topN)

	format := output.ParseFormat(viper.GetString("format"))
	return output.New(cmd.OutOrStdout(), format).WriteMatches(matches)
}
