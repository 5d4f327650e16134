// cmd/shelfmark/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shelfmark/shelfmark/internal/api"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/ingest"
	"github.com/shelfmark/shelfmark/internal/monitoring"
	"github.com/shelfmark/shelfmark/internal/output"
	"github.com/shelfmark/shelfmark/internal/pipeline"
	"github.com/shelfmark/shelfmark/internal/scraper"
	"github.com/shelfmark/shelfmark/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "scrape":
		requireArg(args, "scrape requires a URL")
		runScrape(args[0])
	case "list":
		runList()
	case "stats":
		runStats()
	case "export":
		requireArg(args, "export requires an output file (.xlsx or .csv)")
		runExport(args[0])
	case "serve":
		runServe()
	case "validate":
		requireArg(args, "validate requires a config file")
		runValidate(args[0])
	case "version":
		fmt.Printf("shelfmark %s (built %s, commit %s)\n", version, buildTime, gitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func requireArg(args []string, msg string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`shelfmark - product page ingestion and catalog

Usage:
  shelfmark scrape <url>       ingest one product page
  shelfmark list               list catalog products
  shelfmark stats              show catalog statistics
  shelfmark export <file>      export the catalog (.xlsx or .csv)
  shelfmark serve              run the HTTP API
  shelfmark validate <config>  check a configuration file
  shelfmark version            print version information

The SHELFMARK_CONFIG environment variable points at the YAML
configuration file; defaults apply when it is unset.
`)
}

// loadConfig reads the config file named by SHELFMARK_CONFIG, falling
// back to defaults.
func loadConfig() *config.Config {
	path := os.Getenv("SHELFMARK_CONFIG")
	if path == "" {
		return config.Default()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fatal(err)
	}
	return cfg
}

// buildService wires the full pipeline from configuration.
func buildService(cfg *config.Config, logger utils.Logger) (*ingest.Service, *catalog.Store, *monitoring.Metrics) {
	store, err := catalog.NewStore(catalog.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: logger,
	})
	if err != nil {
		fatal(err)
	}

	var fetcher scraper.Fetcher
	if cfg.Fetcher.Browser {
		fetcher = scraper.NewBrowserClient(scraper.BrowserConfig{
			Timeout:      cfg.Fetcher.Timeout.Std(),
			UserAgent:    cfg.Fetcher.UserAgent,
			WaitSelector: cfg.Fetcher.WaitSelector,
		})
	} else {
		fetcher = scraper.NewHTTPClient(scraper.ClientConfig{
			Timeout:      cfg.Fetcher.Timeout.Std(),
			MaxRedirects: cfg.Fetcher.MaxRedirects,
			UserAgent:    cfg.Fetcher.UserAgent,
			RateLimit:    cfg.Fetcher.RateLimit,
			RateBurst:    cfg.Fetcher.RateBurst,
		})
	}

	norm := pipeline.NewNormalizer(cfg.Site.CurrencySymbol, cfg.Site.BrandSuffix)
	extractor := scraper.NewProductExtractor(norm)

	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.New(cfg.Metrics.Namespace)
	}

	return ingest.NewService(fetcher, extractor, store, logger, metrics), store, metrics
}

func runScrape(url string) {
	cfg := loadConfig()
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.Logging.Level))
	service, store, _ := buildService(cfg, logger)
	defer store.Close()

	product, err := service.ScrapeProduct(context.Background(), url)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("%-10s %s\n", "id:", product.ID)
	fmt.Printf("%-10s %s\n", "title:", product.Title)
	if product.Author != nil {
		fmt.Printf("%-10s %s\n", "author:", *product.Author)
	}
	if product.Price != nil {
		fmt.Printf("%-10s %.2f\n", "price:", *product.Price)
	}
}

func runList() {
	cfg := loadConfig()
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.Logging.Level))
	service, store, _ := buildService(cfg, logger)
	defer store.Close()

	products, meta, err := service.ListProducts(context.Background(), catalog.FilterSpec{Limit: 50})
	if err != nil {
		fatal(err)
	}

	for _, p := range products {
		author := "-"
		if p.Author != nil {
			author = *p.Author
		}
		price := "-"
		if p.Price != nil {
			price = fmt.Sprintf("%.2f", *p.Price)
		}
		fmt.Printf("%s  %-40s  %-25s  %s\n", p.ID, truncateCell(p.Title, 40), truncateCell(author, 25), price)
	}
	fmt.Printf("\n%d products (page %d of %d)\n", meta.Total, meta.Page, meta.TotalPages)
}

func truncateCell(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func runStats() {
	cfg := loadConfig()
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.Logging.Level))
	service, store, _ := buildService(cfg, logger)
	defer store.Close()

	stats, err := service.Stats(context.Background())
	if err != nil {
		fatal(err)
	}

	fmt.Printf("products: %d\n", stats.TotalProducts)
	fmt.Printf("authors:  %d\n", stats.TotalAuthors)
	fmt.Printf("price:    avg %.2f, min %.2f, max %.2f\n", stats.AvgPrice, stats.MinPrice, stats.MaxPrice)
}

func runExport(path string) {
	format, err := output.FormatForPath(path)
	if err != nil {
		fatal(err)
	}

	cfg := loadConfig()
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.Logging.Level))
	service, store, _ := buildService(cfg, logger)
	defer store.Close()

	// Page through the whole catalog.
	var all []catalog.Product
	for page := 1; ; page++ {
		products, meta, err := service.ListProducts(context.Background(), catalog.FilterSpec{Page: page, Limit: 500})
		if err != nil {
			fatal(err)
		}
		all = append(all, products...)
		if page >= meta.TotalPages {
			break
		}
	}

	if err := output.Export(path, format, all); err != nil {
		fatal(err)
	}
	fmt.Printf("exported %d products to %s\n", len(all), path)
}

func runServe() {
	cfg := loadConfig()
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.Logging.Level))
	service, store, metrics := buildService(cfg, logger)
	defer store.Close()

	server := api.NewServer(service, logger, metrics)
	if err := server.ListenAndServe(api.ServerConfig{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}); err != nil {
		fatal(err)
	}
}

func runValidate(path string) {
	if _, err := config.LoadFromFile(path); err != nil {
		fatal(err)
	}
	fmt.Printf("%s is valid\n", path)
}

func fatal(err error) {
	msg := err.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(os.Stderr, "error: "+msg)
	os.Exit(1)
}
