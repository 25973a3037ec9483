package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sitelens/sitelens/internal/aggregator"
	"github.com/sitelens/sitelens/internal/analyzer"
	"github.com/sitelens/sitelens/internal/config"
	"github.com/sitelens/sitelens/internal/exporter"
	"github.com/sitelens/sitelens/internal/graph"
	"github.com/sitelens/sitelens/internal/logging"
	"github.com/sitelens/sitelens/internal/metrics"
	"github.com/sitelens/sitelens/internal/orchestrator"
	"github.com/sitelens/sitelens/internal/store"
	"github.com/sitelens/sitelens/internal/store/sqlgorm"
	"github.com/sitelens/sitelens/pkg/seo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	startURL      string
	maxPages      int
	workers       int
	wallClock     time.Duration
	respectRobots bool
	exportFormat  string
	exportPath    string
	storeKind     string
	storePath     string
	graphExport   string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [URL]",
	Short: "Crawl a site and report its SEO summary",
	Long: `Crawl crawls a website starting from URL, extracting SEO signals from
every reachable page (titles, meta descriptions, headings, canonical tags,
structured data, hreflang, images) and reports a crawl-wide summary:
duplicate content, broken/redirected pages, thin content, and a per-page
score. Results are exported to CSV or JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&startURL, "url", "u", "", "Starting URL to crawl")
	crawlCmd.Flags().IntVarP(&maxPages, "max-pages", "p", orchestrator.MaxPages, "Maximum number of pages to crawl")
	crawlCmd.Flags().IntVarP(&workers, "workers", "w", orchestrator.Concurrency, "Number of concurrent workers")
	crawlCmd.Flags().DurationVar(&wallClock, "wall-clock", orchestrator.WallClockBudget, "Crawl-wide time budget")
	crawlCmd.Flags().BoolVar(&respectRobots, "respect-robots", true, "Respect robots.txt")

	crawlCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: 'csv' or 'json'")
	crawlCmd.Flags().StringVarP(&exportPath, "export", "e", "", "Export file path (default: results.csv/json)")

	crawlCmd.Flags().StringVar(&storeKind, "store", "memory", "Persistence backend: 'memory' or 'sqlite'")
	crawlCmd.Flags().StringVar(&storePath, "store-path", "", "SQLite database path (required when --store=sqlite)")

	crawlCmd.Flags().StringVar(&graphExport, "graph-export", "", "Export the discovered internal link graph to a JSON file")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		startURL = args[0]
	}
	if startURL == "" {
		return fmt.Errorf("starting URL is required: provide it as an argument or with --url")
	}

	cfg := config.Default()
	cfg.StartURL = startURL
	cfg.MaxPages = maxPages
	cfg.Concurrency = workers
	cfg.WallClock = wallClock
	cfg.RespectRobots = respectRobots
	cfg.Store = config.StoreKind(storeKind)
	cfg.StorePath = storePath
	cfg.Debug = debug

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if exportPath == "" {
		exportPath = fmt.Sprintf("results.%s", exportFormat)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	st, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	ctx := context.Background()
	project := &seo.Project{ID: 1, Name: startURL, URL: startURL, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := st.CreateProject(ctx, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	crawl := &seo.Crawl{ID: 1, ProjectID: project.ID, StartURL: startURL, Status: seo.StatusPending}
	if err := st.CreateCrawl(ctx, crawl); err != nil {
		return fmt.Errorf("failed to create crawl: %w", err)
	}

	logger.Info("starting crawl", zap.String("url", startURL))

	m := metrics.New()
	engine := orchestrator.New(crawl.ID, startURL, st, logging.ForCrawl(logger, crawl.ID), m, cfg.OrchestratorConfig())
	if err := engine.Run(ctx); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	records, err := st.ListPageRecords(ctx, crawl.ID)
	if err != nil {
		return fmt.Errorf("failed to load crawled pages: %w", err)
	}
	finalCrawl, err := st.GetCrawl(ctx, crawl.ID)
	if err != nil {
		return fmt.Errorf("failed to load crawl summary: %w", err)
	}

	logger.Info("crawl completed", zap.Int("pages_crawled", len(records)))

	summary := aggregator.Aggregate(finalCrawl, records)
	analyzer.PrintSummary(summary)

	if err := exportResults(finalCrawl, records, cfg); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if graphExport != "" {
		if err := exportLinkGraph(engine.LinkGraph(), graphExport); err != nil {
			return fmt.Errorf("graph export failed: %w", err)
		}
		fmt.Fprintf(os.Stdout, "link graph exported to %s\n", graphExport)
	}

	fmt.Fprintf(os.Stdout, "crawled %d pages\n", len(records))
	fmt.Fprintf(os.Stdout, "results exported to %s\n", exportPath)
	return nil
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return sqlgorm.Open(cfg.StorePath)
	default:
		return store.NewMemory(), nil
	}
}

func exportResults(crawl *seo.Crawl, records []*seo.PageRecord, cfg *config.Config) error {
	switch exportFormat {
	case "csv":
		return exporter.ExportCSV(records, exportPath)
	case "json":
		return exporter.ExportJSON(crawl, records, exportPath, true)
	default:
		return fmt.Errorf("unsupported export format: %s", exportFormat)
	}
}

func exportLinkGraph(g *graph.Graph, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(g.GetAllEdges())
}
