package cmd

import (
	"fmt"
	"os"

	"github.com/bimmerbailey/laxa/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "laxa",
	Short: "Fuzzy-hash records and find their consensus",
	Long: `Laxa hashes text and CSV records with a locality-sensitive hash and
aggregates the digests of related records into a consensus digest.

Records that look alike get digests that are close to each other, so the
consensus of a group describes its typical member and the distance to it
shows how unusual a record is.

Examples:
  laxa hash /var/log/app.log
  laxa similar --to "connection reset by peer" /var/log/app.log
  laxa consensus --threshold 100 events.csv
  laxa watch --follow /var/log/app.log`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.laxa.yaml)")
	flags.StringP("format", "f", "text", "output format (text, json, table)")
	flags.BoolP("verbose", "v", false, "enable verbose output")
	flags.StringP("input", "i", "auto", "input format (auto, text, csv)")
	flags.StringP("delimiter", "d", parser.DefaultDelimiter, "separator between key and content in text input")
	flags.Bool("no-header", false, "treat the first CSV row as a record")
	flags.IntP("workers", "w", 0, "number of records hashed in parallel (default: number of CPUs)")

	_ = viper.BindPFlag("format", flags.Lookup("format"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("input.format", flags.Lookup("input"))
	_ = viper.BindPFlag("input.delimiter", flags.Lookup("delimiter"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".laxa")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LAXA")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("input.format", "auto")
	viper.SetDefault("input.delimiter", parser.DefaultDelimiter)
	viper.SetDefault("workers", 0)
	viper.SetDefault("threshold", 0)

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
