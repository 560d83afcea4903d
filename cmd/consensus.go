package cmd

import (
	"github.com/bimmerbailey/laxa/internal/analyzer"
	"github.com/bimmerbailey/laxa/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus [flags] <file|glob|->...",
	Short: "Aggregate records by key into consensus digests",
	Long: `Group records by key, fold each group's digests into a histogram and
print the group's consensus digest together with how far its members
are from it.

With --threshold, members farther than the threshold from their
group's consensus are listed as outliers.

Examples:
  laxa consensus /var/log/app.log
  laxa consensus --threshold 100 --format table events.csv
  laxa consensus --single --format json app.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConsensus,
}

func init() {
	consensusCmd.Flags().IntP("top", "n", 10, "number of groups to show (0 for all)")
	consensusCmd.Flags().IntP("threshold", "t", 0, "list members farther than this from the consensus")
	consensusCmd.Flags().Bool("single", false, "aggregate all records into one group, ignoring keys")

	rootCmd.AddCommand(consensusCmd)
}

func runConsensus(cmd *cobra.Command, args []string) error {
	topN, _ := cmd.Flags().GetInt("top")
	single, _ := cmd.Flags().GetBool("single")
	threshold := intSetting(cmd, "threshold", "threshold")

	results, logger, err := hashFiles(cmd, args)
	if err != nil {
		return err
	}

	a := analyzer.New(primitive)
	var groups []analyzer.GroupResult
	if single {
		groups = []analyzer.GroupResult{a.GroupAll(results)}
	} else {
		groups = a.Group(results, topN)
	}
	logger.Info("aggregated records", "groups", len(groups), "threshold", threshold)

	format := output.ParseFormat(viper.GetString("format"))
	return output.New(cmd.OutOrStdout(), format).WriteGroups(groups, threshold)
}
