// Package cli wires the command line to the validation pipeline.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taxtools/viesbatch/internal/config"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "viesbatch FILE",
	Short: "Bulk-validate French SIREN identifiers against the EU VIES registry",
	Long: `viesbatch reads SIREN identifiers (one per line), derives each one's
French intra-EU VAT number and asks the EU VIES service whether it is
currently registered.

Validation runs on a fixed pool of workers behind a shared rate limiter;
transient service errors are retried with exponential backoff. Results are
written as CSV rows "siren;has_vat". Identifiers that never got a
definitive answer are logged and omitted from the CSV.

Proxy support reads PROXY_USER, PROXY_PWD and PROXY_HOST from the
environment (a .env file is honoured).`,
	Example: `  viesbatch sirens.txt
  viesbatch sirens.txt --dry-run
  viesbatch sirens.txt -o results.csv -v
  viesbatch sirens.txt -r 10 -w 5`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()

	flags.StringP("output", "o", "", "output CSV file (default: <FILE>.out)")
	flags.IntP("workers", "w", config.DefaultWorkers, "number of concurrent workers")
	flags.IntP("rate-limit", "r", config.DefaultRateLimit, "maximum requests per minute (0 = unlimited)")
	flags.String("log", config.DefaultLogFile, "log file")
	flags.Bool("dry-run", false, "print computed VAT numbers without calling the API")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.BoolP("quiet", "q", false, "suppress console output")
	flags.Bool("no-proxy", false, "disable proxy support")
	flags.Duration("timeout", config.DefaultTimeout, "HTTP request timeout")
	flags.Int("max-retries", config.DefaultMaxRetries, "maximum retries per identifier")
	flags.Duration("initial-delay", config.DefaultInitialDelay, "initial backoff delay")
	flags.Float64("backoff-multiplier", config.DefaultMultiplier, "backoff multiplier")
	flags.Duration("max-delay", config.DefaultMaxDelay, "maximum backoff delay")

	config.SetDefaults(v)
	v.SetEnvPrefix("VIESBATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
