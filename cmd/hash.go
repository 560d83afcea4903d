package cmd

import (
	"github.com/bimmerbailey/laxa/internal/ingest"
	"github.com/bimmerbailey/laxa/internal/linehash"
	"github.com/bimmerbailey/laxa/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var hashCmd = &cobra.Command{
	Use:   "hash [flags] <file|glob|->...",
	Short: "Print the fuzzy digest of every record",
	Long: `Hash every record of the given files and print one digest per record.

Text lines are split into key and content at the first delimiter; in CSV
files the first column is the key. Records too short or too uniform to
hash are shown with a "-" digest.

Examples:
  laxa hash /var/log/app.log
  laxa hash --input csv --format json events.csv
  laxa hash --sort --unique "logs/*.log"
  cat app.log | laxa hash -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	hashCmd.Flags().Bool("sort", false, "order records by digest, unhashed records last")
	hashCmd.Flags().Bool("unique", false, "print only the first record of each distinct digest")

	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	sortHashes, _ := cmd.Flags().GetBool("sort")
	unique, _ := cmd.Flags().GetBool("unique")

	results, logger, err := hashFiles(cmd, args)
	if err != nil {
		return err
	}

	if unique {
		results = uniqueResults(results)
		logger.Info("removed duplicate digests", "remaining", len(results))
	}
	if sortHashes {
		sortResults(results)
	}

	format := output.ParseFormat(viper.GetString("format"))
	return output.New(cmd.OutOrStdout(), format).WriteHashes(results)
}

// uniqueResults keeps unhashed records and the first record of every
// distinct digest.
func uniqueResults(results []ingest.Result) []ingest.Result {
	index := linehash.NewIndex()
	out := results[:0:0]
	for _, r := range results {
		if r.Hash == nil || index.Add(r.Hash) {
			out = append(out, r)
		}
	}
	return out
}

// sortResults orders results like linehash.Sort orders their hashes.
func sortResults(results []ingest.Result) {
	byHash := make(map[*linehash.LineHash]ingest.Result, len(results))
	hashes := make([]*linehash.LineHash, 0, len(results))
	var unhashed []ingest.Result
	for _, r := range results {
		if r.Hash == nil {
			unhashed = append(unhashed, r)
			continue
		}
		byHash[r.Hash] = r
		hashes = append(hashes, r.Hash)
	}

	linehash.Sort(hashes)

	for i, h := range hashes {
		results[i] = byHash[h]
	}
	copy(results[len(hashes):], unhashed)
}
