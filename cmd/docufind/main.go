// Package main is the DocuFind CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

	"github.com/hyperjump/docufind/internal/cli"
	"github.com/hyperjump/docufind/internal/config"
	"github.com/hyperjump/docufind/internal/extract"
	"github.com/hyperjump/docufind/internal/index"
	"github.com/hyperjump/docufind/internal/indexer"
	"github.com/hyperjump/docufind/internal/metrics"
	"github.com/hyperjump/docufind/internal/models"
	"github.com/hyperjump/docufind/internal/normalize"
	"github.com/hyperjump/docufind/internal/search"
	"github.com/hyperjump/docufind/internal/server"
	"github.com/hyperjump/docufind/internal/spelling"
	"github.com/hyperjump/docufind/internal/storage"
	"github.com/hyperjump/docufind/internal/watcher"
	"github.com/hyperjump/docufind/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/docufind/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory takes precedence, and a missing default file yields the built-in defaults.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
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
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "reindex":
		runReindex()
	case "delete":
		runDelete()
	case "stats":
		runStats()
	case "terms":
		runTerms()
	case "suggest":
		runSuggest()
	case "stopwords":
		runStopwords()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("docufind version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, creates the logger and initializes components for a direct-access command.
// Any failure exits the process.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewCommandLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, indexing, requests)")
	watch := fs.Bool("watch", false, "watch the documents directory (overrides config)")
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

	m := metrics.New()
	components, err := initializeComponents(context.Background(), cfg, logger, m)
	if err != nil {
		// An integrity violation in the store is fatal: the index cannot be trusted.
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled || *watch {
		idx := components.Indexer
		watchSvc := watcher.NewWatcher(
			cfg.Storage.DocumentsDir,
			idx.Supports,
			func(path string) {
				if _, err := idx.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := idx.ForgetFile(context.Background(), path); err != nil {
					logger.Warn("watch forget failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Stopwords,
		cfg,
		logger,
		server.WithMetrics(m),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// printSearchUsage prints search subcommand usage and query syntax.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: docufind search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Supported query forms:
  word
  word1 and word2       (also "et")
  word1 or word2        (also "ou")
  word1 not word2
  word1 word2 ...       any of the words

Words are lowercased and reduced to their stem before matching.
Results are ranked by the summed occurrence count of the query words.

Examples:
  docufind search plage
  docufind search "chat and chien"
  docufind search chat or chien --limit 5
  docufind search --server "" "maison not jardin"   # direct storage access
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "docufind search chat -limit 5"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
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

// parseOutputFormat maps the --output flag to a cli format.
func parseOutputFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func mustOutputFormat(s string) cli.OutputFormat {
	format, err := parseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 0, "number of results (0 = server default)")
	offset := fs.Int("offset", 0, "number of ranked results to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := mustOutputFormat(*outputFormat)
	searchQuery := &models.SearchQuery{Query: queryStr, Limit: *limit, Offset: *offset}

	var response *models.SearchResponse
	if *serverURL != "" {
		var err error
		response, err = searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		var err error
		response, err = components.Engine.Search(context.Background(), searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var response models.SearchResponse
	if err := decodeResponse(resp, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func suggestViaHTTP(serverURL, word string) (*spelling.Suggestion, error) {
	resp, err := http.Get(serverURL + "/api/v1/suggest/" + url.PathEscape(word))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var s spelling.Suggestion
	if err := decodeResponse(resp, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// decodeResponse closes resp, checks its status and decodes the JSON body into v.
func decodeResponse(resp *http.Response, want int, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	DatabasePath string `json:"database_path,omitempty"`
	DocumentsDir string `json:"documents_dir,omitempty"`
	Lemmatizer   string `json:"lemmatizer,omitempty"`
	WatchEnabled bool   `json:"watch_enabled"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents      int64                 `json:"documents"`
	UniqueTerms    int64                 `json:"unique_terms"`
	TermRows       int64                 `json:"term_rows"`
	Stopwords      int                   `json:"stopwords"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustOutputFormat(*outputFormat)

	var status statusResponse
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: request failed: %v\n", err)
			os.Exit(1)
		}
		if err := decodeResponse(resp, http.StatusOK, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		stats, err := components.Storage.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:   stats.Documents,
			UniqueTerms: stats.UniqueTerms,
			TermRows:    stats.TermRows,
			Stopwords:   components.Stopwords.Len(),
			Config: &statusConfigResponse{
				DatabasePath: cfg.Storage.DatabasePath,
				DocumentsDir: cfg.Storage.DocumentsDir,
				Lemmatizer:   cfg.Normalize.Lemmatizer,
				WatchEnabled: cfg.Watch.Enabled,
			},
		}
		diskBytes, err := storage.CorpusDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.DocumentsDir)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	writeStatusText(os.Stdout, &status)
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "documents:          %d   # count of indexed documents\n", status.Documents)
	fmt.Fprintf(w, "unique_terms:       %d   # distinct terms in the index\n", status.UniqueTerms)
	fmt.Fprintf(w, "term_rows:          %d   # (document, term) frequency rows\n", status.TermRows)
	fmt.Fprintf(w, "stopwords:          %d\n", status.Stopwords)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + documents on disk\n", *status.DiskUsageBytes)
	}
	if status.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
		fmt.Fprintf(w, "documents_dir:      %s\n", status.Config.DocumentsDir)
		fmt.Fprintf(w, "lemmatizer:         %s\n", status.Config.Lemmatizer)
		fmt.Fprintf(w, "watch_enabled:      %t\n", status.Config.WatchEnabled)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docufind index [flags] <file>...")
		fmt.Println("Files outside the documents directory are copied into it first.")
		os.Exit(1)
	}
	_, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	failed := false
	for _, path := range fs.Args() {
		doc, err := indexPath(ctx, components.Indexer, path)
		if err != nil {
			fmt.Printf("Indexing %s failed: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("Document indexed: %s (id %d)\n", doc.Filename, doc.ID)
	}
	if failed {
		os.Exit(1)
	}
}

// indexPath ingests path in place when it lies inside the documents directory,
// otherwise uploads a copy of it.
func indexPath(ctx context.Context, idx *indexer.Indexer, path string) (*models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(idx.DocumentsDir())
	if err != nil {
		return nil, err
	}
	if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
		return idx.IngestFile(ctx, abs)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return idx.SaveUpload(ctx, filepath.Base(abs), f)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	quiet := fs.Bool("quiet", false, "do not draw a progress bar")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustOutputFormat(*outputFormat)

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress indexer.Progress
	if !*quiet && format == cli.OutputText {
		fmt.Printf("Scanning %s...\n", cfg.Storage.DocumentsDir)
		progress = cli.NewProgressBar(os.Stdout, "Indexing")
	}
	report, err := components.Indexer.Reindex(ctx, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Re-index failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteReindexReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// parseDocumentID parses a positive document id argument.
func parseDocumentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docufind delete [flags] <document-id>")
		os.Exit(1)
	}
	id, err := parseDocumentID(fs.Arg(0))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	doc, err := components.Indexer.DeleteDocument(context.Background(), id)
	if err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s (id %d)\n", doc.Filename, doc.ID)
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	xlsx := fs.String("xlsx", "", "also export the statistics to this .xlsx workbook")
	_ = fs.Parse(os.Args[2:])
	format := mustOutputFormat(*outputFormat)

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	stats, err := components.Engine.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStats(os.Stdout, stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if *xlsx != "" {
		if err := cli.WriteStatsWorkbook(*xlsx, stats); err != nil {
			fmt.Fprintf(os.Stderr, "Workbook export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Statistics written to %s\n", *xlsx)
	}
}

func runTerms() {
	fs := flag.NewFlagSet("terms", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 0, "number of terms (0 = config cloud_limit)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustOutputFormat(*outputFormat)

	if fs.NArg() < 1 {
		fmt.Println("Usage: docufind terms [flags] <document-id>")
		os.Exit(1)
	}
	id, err := parseDocumentID(fs.Arg(0))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	cfg, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	n := *limit
	if n <= 0 {
		n = cfg.Search.CloudLimit
	}
	terms, err := components.Engine.DocumentTerms(context.Background(), id, n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Terms failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDocumentTerms(os.Stdout, terms, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: docufind suggest [flags] <word>")
		os.Exit(1)
	}
	word := fs.Arg(0)

	var suggestion *spelling.Suggestion
	if *serverURL != "" {
		s, err := suggestViaHTTP(*serverURL, word)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
			os.Exit(1)
		}
		suggestion = s
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		s, ok, err := components.Engine.Suggest(context.Background(), word)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Println("No indexed terms to suggest from.")
			os.Exit(1)
		}
		suggestion = &s
	}
	fmt.Printf("%s -> %s (distance %d)\n", suggestion.Word, suggestion.Term, suggestion.Distance)
}

func runStopwords() {
	if len(os.Args) < 3 {
		printStopwordsUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("stopwords", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL; when set, changes are applied to the running server")
	_ = fs.Parse(searchArgsReorder(os.Args[3:]))

	if *serverURL != "" {
		if err := stopwordsViaHTTP(*serverURL, sub, fs.Args()); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	set, err := normalize.LoadStopwords(cfg.Normalize.StopwordsPath)
	if err != nil {
		fmt.Printf("Failed to load stopwords: %v\n", err)
		os.Exit(1)
	}
	switch sub {
	case "list":
		for _, w := range set.List() {
			fmt.Println(w)
		}
	case "add", "remove":
		if fs.NArg() < 1 {
			printStopwordsUsage()
			os.Exit(1)
		}
		for _, w := range fs.Args() {
			op := set.Add
			if sub == "remove" {
				op = set.Remove
			}
			if err := op(w); err != nil {
				fmt.Printf("%s %q failed: %v\n", sub, w, err)
				os.Exit(1)
			}
		}
		fmt.Printf("%d stopwords in %s\n", set.Len(), cfg.Normalize.StopwordsPath)
		fmt.Println("Run \"docufind reindex\" to apply the change to indexed documents.")
	default:
		fmt.Printf("Unknown stopwords subcommand: %s\n", sub)
		printStopwordsUsage()
		os.Exit(1)
	}
}

func stopwordsViaHTTP(serverURL, sub string, words []string) error {
	switch sub {
	case "list":
		resp, err := http.Get(serverURL + "/api/v1/stopwords")
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		var out struct {
			Stopwords []string `json:"stopwords"`
		}
		if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
			return err
		}
		for _, w := range out.Stopwords {
			fmt.Println(w)
		}
	case "add":
		for _, w := range words {
			body, _ := json.Marshal(map[string]string{"word": w})
			resp, err := http.Post(serverURL+"/api/v1/stopwords", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			var out map[string]string
			if err := decodeResponse(resp, http.StatusCreated, &out); err != nil {
				return fmt.Errorf("add %q failed: %w", w, err)
			}
			fmt.Printf("Added: %s\n", w)
		}
	case "remove":
		for _, w := range words {
			req, _ := http.NewRequest(http.MethodDelete, serverURL+"/api/v1/stopwords/"+url.PathEscape(w), nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			var out map[string]string
			if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
				return fmt.Errorf("remove %q failed: %w", w, err)
			}
			fmt.Printf("Removed: %s\n", w)
		}
	case "reload":
		resp, err := http.Post(serverURL+"/api/v1/stopwords/reload", "application/json", nil)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		var out map[string]any
		if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
			return err
		}
		fmt.Printf("Reloaded %v stopwords\n", out["stopwords"])
	default:
		return fmt.Errorf("unknown stopwords subcommand: %s", sub)
	}
	return nil
}

func printStopwordsUsage() {
	fmt.Println("Usage: docufind stopwords <list|add|remove|reload> [flags] [word...]")
	fmt.Println("  docufind stopwords list              List stopwords")
	fmt.Println("  docufind stopwords add <word>...     Add stopwords")
	fmt.Println("  docufind stopwords remove <word>...  Remove stopwords")
	fmt.Println("  docufind stopwords reload --server URL  Re-read the stopword file on a running server")
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Stopwords *normalize.StopwordSet
	Index     *index.Index
	Suggester *spelling.Suggester
	Engine    *search.Engine
	Indexer   *indexer.Indexer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents opens the store, builds the normalizer from config and loads the
// inverted index from the stored term frequencies. m may be nil.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	stopwords, err := normalize.LoadStopwords(cfg.Normalize.StopwordsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load stopwords: %w", err)
	}
	lemmatizer, err := normalize.NewLemmatizer(cfg.Normalize.Lemmatizer, cfg.Normalize.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to create lemmatizer: %w", err)
	}
	normalizer := normalize.New(stopwords,
		normalize.WithLemmatizer(lemmatizer),
		normalize.WithMinLength(cfg.Normalize.MinTermLength),
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	inv := index.New()
	suggester := spelling.NewSuggester(store, spelling.WithVocabularyLimit(cfg.Search.SuggestVocabulary))

	engineOpts := []search.Option{
		search.WithLogger(logger),
		search.WithSuggester(suggester),
		search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		search.WithSnippetLength(cfg.Search.SnippetLength),
	}
	idxOpts := []indexer.IndexerOption{
		indexer.WithLogger(logger),
		indexer.WithWorkers(cfg.Index.Workers),
		indexer.WithExtensions(cfg.Index.Extensions),
		indexer.WithOnChange(suggester.Invalidate),
	}
	if m != nil {
		engineOpts = append(engineOpts, search.WithMetrics(m))
		idxOpts = append(idxOpts, indexer.WithMetrics(m))
	}
	engine := search.NewEngine(store, inv, normalizer, engineOpts...)
	idx := indexer.NewIndexer(store, inv, normalizer, extract.NewExtractor(), cfg.Storage.DocumentsDir, idxOpts...)

	if err := idx.LoadIndex(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Components{
		Storage:   store,
		Stopwords: stopwords,
		Index:     inv,
		Suggester: suggester,
		Engine:    engine,
		Indexer:   idx,
	}, nil
}

func printUsage() {
	fmt.Println(`docufind - French document search engine

Usage:
  docufind server [flags]              Start the HTTP server
  docufind search [flags] <query>      Search documents (word, "a and b", "a or b", "a not b")
  docufind index [flags] <file>...     Ingest documents
  docufind reindex [flags]             Rebuild the corpus from the documents directory
  docufind delete [flags] <id>         Delete a document and its file
  docufind stats [flags]               Show corpus statistics
  docufind terms [flags] <id>          Show the most frequent terms of a document
  docufind suggest [flags] <word>      Suggest the closest indexed term
  docufind stopwords <list|add|remove|reload>  Manage stopwords
  docufind status [flags]              Show index and storage status
  docufind version                     Show version
  docufind help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docufind/config.yaml)
  --debug            Enable debug logging
  --watch            Watch the documents directory for changes

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --limit int        Number of results
  --offset int       Number of ranked results to skip
  --output string    Output format: text or json (default: text)

Reindex Flags:
  --config string    Config file path
  --quiet            Do not draw a progress bar
  --output string    Output format: text or json

Stats Flags:
  --xlsx string      Also export the statistics to an .xlsx workbook

Examples:
  docufind server --watch
  docufind search "chat and chien"
  docufind search --output json "maison or jardin"
  docufind index rapport.pdf notes.txt
  docufind reindex
  docufind delete 12
  docufind stats --xlsx stats.xlsx
  docufind stopwords add alors
  docufind status --output json`)
}
