package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "sitelens",
	Short: "A concurrent, site-wide SEO auditor",
	Long: `sitelens crawls a website, extracts SEO signals from every page
(titles, meta descriptions, headings, canonical tags, structured data,
hreflang, images) and reports a crawl-wide summary: duplicate content,
broken/redirected pages, thin content, and a per-page score.`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
