// Package main is the crlhelp CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/ai"
	"github.com/armish/crl.help/internal/cli"
	"github.com/armish/crl.help/internal/config"
	"github.com/armish/crl.help/internal/enrich"
	"github.com/armish/crl.help/internal/ingest"
	"github.com/armish/crl.help/internal/keyword"
	"github.com/armish/crl.help/internal/metrics"
	"github.com/armish/crl.help/internal/models"
	"github.com/armish/crl.help/internal/rag"
	"github.com/armish/crl.help/internal/search"
	"github.com/armish/crl.help/internal/server"
	"github.com/armish/crl.help/internal/storage"
	"github.com/armish/crl.help/internal/watcher"
	"github.com/armish/crl.help/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/crlhelp/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// dryRunEmbedDimension keeps fake embeddings small; real dimensions come
// from the OpenAI embedding model.
const dryRunEmbedDimension = 32

// datasetExtensions are the cache files whose changes trigger a reload.
var datasetExtensions = []string{".zip", ".json"}

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "crlhelp server" from the project dir uses the
// project's config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "enrich":
		runEnrich()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("crlhelp version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	noWatch := fs.Bool("no-watch", false, "disable the dataset file watcher")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if !*noWatch {
		watchSvc := watcher.NewWatcher(cfg.Data.Dir, datasetExtensions,
			datasetReload(components, logger), logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Storage,
		components.Searcher,
		components.RAG,
		components.Collector,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	fromFDA := fs.Bool("from-fda", false, "download and load the FDA bulk dataset")
	useCache := fs.Bool("cache", false, "reuse a previously downloaded payload")
	dir := fs.String("dir", "", "import letter files from a local directory")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if (*fromFDA && *dir != "") || (!*fromFDA && *dir == "") {
		fmt.Println("Usage: crlhelp ingest --from-fda [--cache] | --dir <path>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	var run *models.IngestionRun
	if *fromFDA {
		run, err = components.Ingest.Run(ctx, *useCache)
	} else {
		run, err = components.Ingest.ImportDir(ctx, *dir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRunSummary(os.Stdout, run, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runEnrich() {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dryRun := fs.Bool("dry-run", false, "use the deterministic fake provider instead of the OpenAI API")
	limit := fs.Int("limit", 0, "letters per pass (0 = all)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.AI.DryRun = true
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if components.Enrich == nil {
		fmt.Fprintln(os.Stderr, "AI features are not configured (set OPENAI_API_KEY or pass --dry-run)")
		os.Exit(1)
	}

	ctx := context.Background()
	passes := []struct {
		stage string
		run   func() (*enrich.Stats, error)
	}{
		{"summaries", func() (*enrich.Stats, error) { return components.Enrich.Summaries(ctx, *limit) }},
		{"metadata", func() (*enrich.Stats, error) { return components.Enrich.Metadata(ctx, *limit) }},
		{"summary embeddings", func() (*enrich.Stats, error) {
			return components.Enrich.Embeddings(ctx, models.EmbeddingTypeSummary, *limit)
		}},
		{"full text embeddings", func() (*enrich.Stats, error) {
			return components.Enrich.Embeddings(ctx, models.EmbeddingTypeFullText, *limit)
		}},
	}
	for _, pass := range passes {
		stats, err := pass.run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Enrichment pass %q failed: %v\n", pass.stage, err)
			os.Exit(1)
		}
		cli.WriteEnrichStats(os.Stdout, pass.stage, stats)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: crlhelp search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  crlhelp search clinical deficiencies
  crlhelp search "manufacturing facility"        # same as unquoted
  crlhelp search --limit 20 --output json cmc
`)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// queryArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "crlhelp search query
// -limit 5" would otherwise leave -limit unparsed.
func queryArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := queryArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids the Bleve
		// index lock conflict).
		response, err := searchViaHTTP(*serverURL, queryStr, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct storage access (when server is not running).
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Searcher.Search(context.Background(),
		&models.SearchQuery{Query: queryStr, Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runAsk() {
	askArgs := queryArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of letters to retrieve (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(askArgs)

	question := buildQuery(fs.Args())
	if question == "" {
		fmt.Println("Usage: crlhelp ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		response, err := askViaHTTP(*serverURL, &models.QARequest{Question: question, TopK: *topK})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAnswer(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if components.RAG == nil {
		fmt.Fprintln(os.Stderr, "AI features are not configured (set OPENAI_API_KEY or enable dry_run)")
		os.Exit(1)
	}
	response, err := components.RAG.Ask(context.Background(), question, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedConfigPath))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchSvc := watcher.NewWatcher(cfg.Data.Dir, datasetExtensions,
		datasetReload(components, logger), logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var health *models.HealthStatus
	if *serverURL != "" {
		health, err = healthViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		health, err = localHealth(context.Background(), components.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteHealth(os.Stdout, health, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// localHealth builds the status report straight from storage.
func localHealth(ctx context.Context, store storage.Storage) (*models.HealthStatus, error) {
	health := &models.HealthStatus{Status: "healthy", Database: "connected"}
	var err error
	if health.TotalCRLs, err = store.CountCRLs(ctx); err != nil {
		return nil, err
	}
	if health.TotalSummaries, err = store.CountSummaries(ctx); err != nil {
		return nil, err
	}
	if health.TotalEmbeddings, err = store.CountEmbeddings(ctx); err != nil {
		return nil, err
	}
	if run, err := store.LastCompletedRun(ctx); err == nil {
		health.LastDataUpdate = run.DatasetUpdated
	}
	return health, nil
}

// datasetReload returns the watcher callback that re-ingests the cached
// dataset and refreshes spell suggestions.
func datasetReload(components *Components, logger *zap.Logger) func() {
	return func() {
		run, err := components.Ingest.Run(context.Background(), true)
		if err != nil {
			logger.Warn("dataset reload failed", zap.Error(err))
			return
		}
		logger.Info("dataset reloaded",
			zap.Int("total", run.RecordsTotal),
			zap.Int("new", run.RecordsNew),
			zap.Int("updated", run.RecordsUpdated))
		if err := components.Searcher.RefreshSpellings(); err != nil {
			logger.Warn("spelling refresh failed", zap.Error(err))
		}
	}
}

func searchViaHTTP(serverURL, query string, limit int) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	resp, err := http.Get(serverURL + "/api/search?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func askViaHTTP(serverURL string, req *models.QARequest) (*models.QAResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/qa", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.QAResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func healthViaHTTP(serverURL string) (*models.HealthStatus, error) {
	resp, err := http.Get(serverURL + "/api/health")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var health models.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &health, nil
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex *keyword.BleveIndex
	Searcher     *search.Service
	Ingest       *ingest.Service
	Enrich       *enrich.Service
	Provider     ai.Provider
	RAG          *rag.Engine
	Collector    *metrics.Collector
}

func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires storage, the keyword index, search, ingestion,
// and, when configured, the AI provider with enrichment and Q&A on top.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Search.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	collector := metrics.NewCollector()
	spell := keyword.NewSpellChecker(keywordIndex)
	searcher := search.NewService(store, keywordIndex, spell, logger)
	ingestSvc := ingest.NewService(store, keywordIndex, cfg.Data, logger)

	components := &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Searcher:     searcher,
		Ingest:       ingestSvc,
		Collector:    collector,
	}

	var provider ai.Provider
	switch {
	case cfg.AI.DryRun:
		logger.Info("AI dry-run mode, using the deterministic fake provider")
		provider = ai.NewFakeProvider(dryRunEmbedDimension)
	case cfg.AI.APIKey != "":
		real, err := ai.NewOpenAIProvider(ai.Config{
			BaseURL:        cfg.AI.BaseURL,
			APIKey:         cfg.AI.APIKey,
			ChatModel:      cfg.AI.ChatModel,
			EmbeddingModel: cfg.AI.EmbeddingModel,
			MaxRetries:     cfg.AI.MaxRetries,
			Timeout:        time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			CacheSize:      cfg.AI.CacheSize,
		}, logger)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to initialize AI provider: %w", err)
		}
		provider = real
	default:
		logger.Warn("no OpenAI API key configured, AI features disabled")
	}

	if provider != nil {
		provider = metrics.InstrumentProvider(provider, collector)
		components.Provider = provider
		components.Enrich = enrich.NewService(store, keywordIndex, provider, logger)
		engine, err := rag.NewEngine(store, provider, cfg.AI, logger)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to initialize Q&A engine: %w", err)
		}
		components.RAG = engine
	}
	return components, nil
}

func printUsage() {
	fmt.Println(`crlhelp - FDA Complete Response Letter explorer

Usage:
  crlhelp server [flags]            Start the HTTP API server
  crlhelp ingest [flags]            Load the FDA dataset or a local letter directory
  crlhelp enrich [flags]            Generate summaries, metadata, and embeddings
  crlhelp search [flags] <query>    Keyword search over the letters
  crlhelp ask [flags] <question>    Ask a question answered from the letters
  crlhelp watch [flags]             Re-ingest whenever cached dataset files change
  crlhelp status [flags]            Show service and data status
  crlhelp version                   Show version
  crlhelp help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/crlhelp/config.yaml)
  --debug            Enable debug logging
  --no-watch         Disable the dataset file watcher

Ingest Flags:
  --config string    Config file path
  --from-fda         Download and load the FDA bulk dataset
  --cache            Reuse a previously downloaded payload
  --dir string       Import letter files from a local directory
  --output string    Output format: text or json (default: text)

Enrich Flags:
  --config string    Config file path
  --dry-run          Use the deterministic fake provider instead of the OpenAI API
  --limit int        Letters per pass (0 = all)

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --limit int        Number of results (default: 10)
  --output string    Output format: text or json (default: text)

Ask Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --top-k int        Number of letters to retrieve (0 = config default)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  crlhelp server
  crlhelp ingest --from-fda
  crlhelp ingest --dir ./letters
  crlhelp enrich --dry-run
  crlhelp search clinical deficiencies
  crlhelp search --output json "manufacturing facility"
  crlhelp ask "What are common CMC deficiencies in biologics?"
  crlhelp status --output json`)
}
