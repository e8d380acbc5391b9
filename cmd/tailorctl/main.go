// Command tailorctl inspects and maintains a jd-tailor server: it reads and
// purges the response cache directly, and talks to the running server for
// tasks, skills extraction and statistics.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	apiAddr    string
	timeout    time.Duration
	configPath string
	cacheDir   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "tailorctl",
		Short:         "tailorctl - jd-tailor server CLI",
		Long:          `tailorctl manages the jd-tailor response cache and background tasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.apiAddr, "api", "http://127.0.0.1:8081", "API server address")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", DefaultClientTimeout, "timeout for each API request")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file used to locate the cache")
	root.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "cache directory (overrides the config)")

	root.AddCommand(
		newCacheCmd(opts),
		newTaskCmd(opts),
		newSkillsCmd(opts),
		newStatsCmd(opts),
		newCleanupCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
