package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bimmerbailey/laxa/internal/fuzzy"
	"github.com/bimmerbailey/laxa/internal/histogram"
	"github.com/bimmerbailey/laxa/internal/ingest"
	"github.com/bimmerbailey/laxa/internal/output"
	"github.com/bimmerbailey/laxa/internal/tail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <file>",
	Short: "Fold a growing file into a running consensus",
	Long: `Read the last records of a file, and with --follow every record
appended later, folding each into a running consensus digest. Every
record is printed with its distance to that consensus; with --threshold,
records past the threshold are highlighted as outliers.

Examples:
  laxa watch /var/log/app.log
  laxa watch --follow --threshold 120 /var/log/app.log
  laxa watch -n 1000 --follow --follow-rotate --format json app.log`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntP("lines", "n", 10, "number of existing records to fold in first")
	watchCmd.Flags().Bool("follow", false, "keep reading records appended to the file")
	watchCmd.Flags().Bool("follow-rotate", false, "follow through log rotations (continue when file is renamed/removed)")
	watchCmd.Flags().IntP("threshold", "t", 0, "highlight records farther than this from the consensus")
	watchCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	lines, _ := cmd.Flags().GetInt("lines")
	follow, _ := cmd.Flags().GetBool("follow")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	noColor, _ := cmd.Flags().GetBool("no-color")
	noHeader, _ := cmd.Flags().GetBool("no-header")
	threshold := intSetting(cmd, "threshold", "threshold")

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	p, err := newParser(cfg, noHeader)
	if err != nil {
		return err
	}

	colorMode := output.ColorAuto
	if noColor {
		colorMode = output.ColorNever
	}

	format := output.ParseFormat(viper.GetString("format"))
	writer := output.New(cmd.OutOrStdout(), format)
	agg := histogram.New(primitive)

	tailer := tail.New(tail.Options{
		FilePath:     filePath,
		Lines:        lines,
		Follow:       follow,
		FollowRotate: followRotate,
		Parser:       p,
		Hasher:       ingest.New(primitive, ingest.WithLogger(logger)),
		Aggregator:   agg,
		Logger:       logger,
		OutputFunc: func(ev tail.Event) error {
			return writer.WriteEvent(ev, threshold, colorMode)
		},
	})

	ctx, cancel := signalContext()
	defer cancel()

	if err := tailer.Run(ctx); err != nil && !errors.Is(err, tail.ErrRotated) {
		return err
	}

	if agg.Len() > 0 && format != output.FormatJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "consensus %s over %d records\n", fuzzy.String(agg.Consensus()), agg.Len())
	}
	return nil
}
