// Package main is the pdfchat CLI entry point.
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
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pdfchat/internal/chat"
	"github.com/hyperjump/pdfchat/internal/chunk"
	"github.com/hyperjump/pdfchat/internal/cli"
	"github.com/hyperjump/pdfchat/internal/config"
	"github.com/hyperjump/pdfchat/internal/embedding"
	"github.com/hyperjump/pdfchat/internal/extract"
	"github.com/hyperjump/pdfchat/internal/ingest"
	"github.com/hyperjump/pdfchat/internal/models"
	"github.com/hyperjump/pdfchat/internal/server"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/vector"
	"github.com/hyperjump/pdfchat/internal/watcher"
	"github.com/hyperjump/pdfchat/internal/workspace"
	"github.com/hyperjump/pdfchat/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/pdfchat/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present; when neither exists the defaults
// (plus DATA_DIR, DATABASE_PATH and EMBEDDING_MODEL) are used. Returns the
// config and the path that was loaded ("" for defaults).
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
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
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
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "workspaces":
		runWorkspaces()
	case "documents":
		runDocuments()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("pdfchat version %s\n", version)
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
	noWatch := fs.Bool("no-watch", false, "do not watch workspace directories")
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
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled && !*noWatch {
		watchSvc := newWatcher(cfg, components, logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		go func() {
			if err := watchSvc.SyncExisting(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("initial workspace sync failed", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(
		components.Chat,
		components.Ingester,
		components.Workspaces,
		components.Storage,
		cfg,
		logger,
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

// newWatcher ingests files dropped into workspace directories. Directories
// created by hand are registered as workspaces on first use.
func newWatcher(cfg *config.Config, c *Components, logger *zap.Logger) *watcher.Watcher {
	onIndex := func(ctx context.Context, wsID, path string) error {
		if _, err := c.Workspaces.Create(ctx, wsID); err != nil {
			return err
		}
		_, err := c.Ingester.IngestFile(ctx, wsID, path)
		return err
	}
	onRemove := func(ctx context.Context, wsID, path string) error {
		return c.Ingester.RemoveFile(ctx, wsID, path)
	}
	return watcher.NewWatcher(
		c.Workspaces.Root(),
		cfg.Watch.Extensions,
		onIndex,
		onRemove,
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
	)
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
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

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	wsID := fs.String("workspace", "", "workspace to ingest into (created if missing)")
	copyFiles := fs.Bool("copy", true, "copy files into the workspace directory before ingesting")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if *wsID == "" {
		fmt.Println("Usage: pdfchat ingest --workspace <name> [file ...]")
		fmt.Println("With no files, every supported file already in the workspace directory is ingested.")
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
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if _, err := components.Workspaces.Create(ctx, *wsID); err != nil {
		fmt.Printf("Failed to create workspace: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		n, err := components.Ingester.SyncWorkspace(ctx, *wsID)
		if err != nil {
			fmt.Printf("Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d chunk(s) into %s\n", n, *wsID)
		return
	}

	total := 0
	for _, path := range fs.Args() {
		if *copyFiles {
			path, err = copyIntoWorkspace(components.Workspaces.Dir(*wsID), path)
			if err != nil {
				fmt.Printf("Copy failed: %v\n", err)
				os.Exit(1)
			}
		}
		n, err := components.Ingester.IngestFile(ctx, *wsID, path)
		if err != nil {
			fmt.Printf("Ingest %s failed: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d chunk(s) added\n", filepath.Base(path), n)
		total += n
	}
	fmt.Printf("Ingested %d chunk(s) into %s\n", total, *wsID)
}

// copyIntoWorkspace copies src into dir under its base name, preserving the
// modification time so re-ingesting an unchanged file is a no-op.
func copyIntoWorkspace(dir, src string) (string, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(absSrc))
	if absSrc == dst {
		return dst, nil
	}
	info, err := os.Stat(absSrc)
	if err != nil {
		return "", err
	}
	in, err := os.Open(absSrc)
	if err != nil {
		return "", err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", err
	}
	return dst, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	wsID := fs.String("workspace", "", "workspace to ask")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if *wsID == "" || question == "" {
		fmt.Println("Usage: pdfchat ask --workspace <name> <question>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var resp *models.ChatResponse
	if *serverURL != "" {
		resp, err = askViaHTTP(*serverURL, &models.ChatRequest{WorkspaceID: *wsID, Message: question})
	} else {
		resp, err = askDirect(*configPath, *wsID, question)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askDirect(configPath, wsID, question string) (*models.ChatResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Chat.Chat(context.Background(), wsID, question)
}

func askViaHTTP(serverURL string, req *models.ChatRequest) (*models.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runWorkspaces() {
	fs := flag.NewFlagSet("workspaces", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	withComponents(*configPath, func(c *Components) error {
		list, err := c.Workspaces.List(context.Background())
		if err != nil {
			return err
		}
		return cli.WriteWorkspaces(os.Stdout, list, format)
	})
}

func runDocuments() {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	wsID := fs.String("workspace", "", "workspace to list")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *wsID == "" {
		fmt.Println("Usage: pdfchat documents --workspace <name>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	withComponents(*configPath, func(c *Components) error {
		docs, err := c.Storage.ListDocuments(context.Background(), *wsID)
		if err != nil {
			return err
		}
		return cli.WriteDocuments(os.Stdout, docs, format)
	})
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	wsID := fs.String("workspace", "", "workspace to rebuild")
	_ = fs.Parse(os.Args[2:])

	if *wsID == "" {
		fmt.Println("Usage: pdfchat reindex --workspace <name>")
		os.Exit(1)
	}
	withComponents(*configPath, func(c *Components) error {
		ctx := context.Background()
		if _, err := c.Workspaces.Get(ctx, *wsID); err != nil {
			return err
		}
		if err := c.Ingester.Reindex(ctx, *wsID); err != nil {
			return err
		}
		fmt.Printf("Reindexed %s\n", *wsID)
		return nil
	})
}

// withComponents runs fn against locally opened storage and exits non-zero on error.
func withComponents(configPath string, fn func(c *Components) error) {
	cfg, _, err := loadConfig(configPath)
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
	err = fn(components)
	components.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	VectorIndexType     string `json:"vector_index_type"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	ChunkMaxChars       int    `json:"chunk_max_chars,omitempty"`
	TopK                int    `json:"top_k,omitempty"`
	Citations           int    `json:"citations,omitempty"`
	DataDir             string `json:"data_dir,omitempty"`
	DatabasePath        string `json:"database_path,omitempty"`
}

// statusResponse is the shape of the GET /status response.
type statusResponse struct {
	Workspaces     int64                 `json:"workspaces"`
	Documents      int64                 `json:"documents"`
	Chunks         int64                 `json:"chunks"`
	LoadedIndexes  map[string]int        `json:"loaded_indexes,omitempty"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status *statusResponse
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		withComponents(*configPath, func(c *Components) error {
			status, err = localStatus(context.Background(), c)
			return err
		})
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
	writeStatusText(os.Stdout, status)
}

func localStatus(ctx context.Context, c *Components) (*statusResponse, error) {
	wsCount, err := c.Storage.CountWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("count workspaces: %w", err)
	}
	docCount, err := c.Storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	chunkCount, err := c.Storage.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	cfg := c.Config
	indexType, err := vector.ResolveIndexType(cfg.Vector.IndexType)
	if err != nil {
		return nil, err
	}
	status := &statusResponse{
		Workspaces: wsCount,
		Documents:  docCount,
		Chunks:     chunkCount,
		Config: &statusConfigResponse{
			VectorIndexType:     string(indexType),
			EmbeddingDimensions: cfg.Embedding.Dimensions,
			ChunkMaxChars:       cfg.Chunk.MaxChars,
			TopK:                cfg.Answer.TopK,
			Citations:           cfg.Answer.Citations,
			DataDir:             cfg.Storage.DataDir,
			DatabasePath:        cfg.Storage.DatabasePath,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.DataDir); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "workspaces:         %d\n", status.Workspaces)
	fmt.Fprintf(w, "documents:          %d   # ingested files\n", status.Documents)
	fmt.Fprintf(w, "chunks:             %d   # embedded passages\n", status.Chunks)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + workspace files and indexes\n", *status.DiskUsageBytes)
	}
	ids := make([]string, 0, len(status.LoadedIndexes))
	for id := range status.LoadedIndexes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "index[%s]:  %d vectors loaded\n", id, status.LoadedIndexes[id])
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "vector_index_type:  %s\n", c.VectorIndexType)
		if c.EmbeddingDimensions > 0 {
			fmt.Fprintf(w, "embedding_dims:     %d\n", c.EmbeddingDimensions)
		}
		if c.ChunkMaxChars > 0 {
			fmt.Fprintf(w, "chunk_max_chars:    %d\n", c.ChunkMaxChars)
		}
		if c.TopK > 0 {
			fmt.Fprintf(w, "top_k:              %d\n", c.TopK)
		}
		if c.DataDir != "" {
			fmt.Fprintf(w, "data_dir:           %s\n", c.DataDir)
		}
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
	}
}

// Components holds initialized services.
type Components struct {
	Config     *config.Config
	Storage    storage.Storage
	Embedder   embedding.Embedder
	Workspaces *workspace.Manager
	Ingester   *ingest.Ingester
	Chat       *chat.Engine
}

func (c *Components) Close() {
	if c.Workspaces != nil {
		_ = c.Workspaces.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.New(embedding.Options{
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		Logger:     logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vecOpts := vector.Options{
		IndexType: cfg.Vector.IndexType,
		Dimension: cfg.Vector.Dimension,
		Compress:  cfg.Vector.Compress,
	}
	workspaces, err := workspace.NewManager(cfg.Storage.DataDir, store, vecOpts, workspace.WithLogger(logger))
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize workspaces: %w", err)
	}
	indexType, _ := vector.ResolveIndexType(cfg.Vector.IndexType)
	logger.Info("vector index initialized",
		zap.String("type", string(indexType)),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	ingester := ingest.NewIngester(
		store,
		workspaces,
		embedder,
		extract.NewExtractor(),
		chunk.NewChunker(cfg.Chunk.MaxChars),
		ingest.WithLogger(logger),
	)
	engine := chat.NewEngine(
		store,
		workspaces,
		embedder,
		chat.WithTopK(cfg.Answer.TopK),
		chat.WithCitations(cfg.Answer.Citations),
		chat.WithLogger(logger),
	)

	return &Components{
		Config:     cfg,
		Storage:    store,
		Embedder:   embedder,
		Workspaces: workspaces,
		Ingester:   ingester,
		Chat:       engine,
	}, nil
}

func printUsage() {
	fmt.Println(`pdfchat - Chat with your PDFs, locally

Usage:
  pdfchat server [flags]                         Start the HTTP server
  pdfchat ingest --workspace <name> [file ...]   Ingest files into a workspace
  pdfchat ask --workspace <name> <question>      Ask a question
  pdfchat workspaces [flags]                     List workspaces
  pdfchat documents --workspace <name>           List a workspace's documents
  pdfchat reindex --workspace <name>             Rebuild a workspace's vector index
  pdfchat status [flags]                         Show storage/index status
  pdfchat version                                Show version
  pdfchat help                                   Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/pdfchat/config.yaml)
  --debug            Enable debug logging
  --no-watch         Do not watch workspace directories for new files

Ingest Flags:
  --workspace string  Workspace name (created if missing)
  --copy              Copy files into the workspace directory first (default: true)

Ask Flags:
  --workspace string  Workspace name
  --server string     Server URL (default: http://localhost:8000). Use --server "" to read local storage directly.
  --output string     Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8000). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Environment:
  DATA_DIR, DATABASE_PATH, EMBEDDING_MODEL override the config file.

Examples:
  pdfchat server
  pdfchat ingest --workspace research paper.pdf notes.docx
  pdfchat ask --workspace research what is the main finding
  pdfchat ask --workspace research --output json "what is the main finding?"
  pdfchat status --server ""`)
}
