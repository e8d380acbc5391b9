package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/phrazzld/jd-tailor/internal/cache"
	"github.com/phrazzld/jd-tailor/internal/config"
	"github.com/phrazzld/jd-tailor/internal/platform/logger"
	"github.com/spf13/cobra"
)

func newCacheCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the response cache on disk",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts and sizes per namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			printCacheStats(cmd.OutOrStdout(), store.Dir(), store.Stats())
			return nil
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			n, err := store.ClearExpired()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s expired entries\n", humanize.Comma(int64(n)))
			return err
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			n, err := store.ClearAll()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s entries\n", humanize.Comma(int64(n)))
			return err
		},
	}

	var keyFile string
	keyCmd := &cobra.Command{
		Use:   "key [text]",
		Short: "Print the content digest of a job description",
		Long: `Print the SHA-256 digest of the given text or file, trimmed of surrounding
whitespace. Task metadata carries its first 12 characters as jd_key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textInput(cmd, args, keyFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cache.ComputeKey(strings.TrimSpace(text)))
			return nil
		},
	}
	keyCmd.Flags().StringVar(&keyFile, "file", "", "read the text from a file (- for stdin)")

	cmd.AddCommand(statsCmd, purgeCmd, clearCmd, keyCmd)
	return cmd
}

// openStore opens the cache described by the config, with --cache-dir
// taking precedence over the configured directory.
func openStore(cmd *cobra.Command, opts *globalOptions) (*cache.Store, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, err
	}

	dir := cfg.Cache.Dir
	if opts.cacheDir != "" {
		dir = opts.cacheDir
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("cache directory %s: %w", dir, err)
	}

	// Store warnings (unreadable entries and the like) go to stderr.
	log, err := logger.Setup(logger.LoggerConfig{Level: "warn", Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}

	return cache.NewStore(cache.Config{
		Dir:           dir,
		TTL:           cfg.Cache.TTL,
		NamespaceTTLs: cfg.Cache.NamespaceTTLs,
	}, log)
}

func printCacheStats(out io.Writer, dir string, stats cache.Stats) {
	fmt.Fprintf(out, "Cache: %s\n\n", dir)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tFILES\tSIZE\tEXPIRED")

	namespaces := make([]string, 0, len(stats.ByNamespace))
	for ns := range stats.ByNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		s := stats.ByNamespace[ns]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ns,
			humanize.Comma(int64(s.Files)),
			humanize.Bytes(uint64(s.SizeBytes)),
			humanize.Comma(int64(s.Expired)))
	}
	fmt.Fprintf(w, "TOTAL\t%s\t%s\t%s\n",
		humanize.Comma(int64(stats.TotalFiles)),
		humanize.Bytes(uint64(stats.TotalSizeBytes)),
		humanize.Comma(int64(stats.ExpiredFiles)))
	w.Flush()
}

// textInput returns the single positional argument, or the contents of
// file when it is set. "-" reads standard input.
func textInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("provide the text as an argument or with --file")
	}
}
