package main

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/web-cache/internal/cache"
	"github.com/leonardcser/web-cache/internal/config"
	"github.com/leonardcser/web-cache/internal/logger"
	"github.com/leonardcser/web-cache/internal/tools"
	"github.com/leonardcser/web-cache/internal/tracker"
	"github.com/leonardcser/web-cache/internal/web"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	if err := cfg.InitLogger(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting Web Cache MCP server")
	ctx := context.Background()

	kv, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Errorf("Failed to open %s store: %v", cfg.Store.Driver, err)
		panic(err)
	}
	defer kv.Close()
	logger.Infof("Using %s store", cfg.Store.Driver)

	format, _ := web.ParseFormat(cfg.Fetch.Format)
	pages := tracker.New(
		web.NewFetcher(web.FetcherOptions{Timeout: cfg.Fetch.Timeout, Delay: cfg.Fetch.Delay, Format: format}),
		kv,
		tracker.Options{TTL: cfg.ResultTTL, SingleFlight: cfg.SingleFlight},
	)
	searchPages := tracker.New(
		web.NewFetcher(web.FetcherOptions{Timeout: cfg.Fetch.Timeout, Delay: cfg.Fetch.Delay}),
		kv,
		tracker.Options{TTL: cfg.ResultTTL, SingleFlight: cfg.SingleFlight, Namespace: "search"},
	)
	searcher := web.NewSearcher(searchPages, "")

	s := server.NewMCPServer(
		"Web Cache MCP",
		"0.2.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	toolFetch := mcp.NewTool("web-fetch",
		mcp.WithDescription(multiline(
			"Fetches content from a specified URL",
			"\nFunctionality:",
			"- Takes a fully-formed http:// or https:// URL",
			"- Returns the page content ("+string(format)+")",
			"\nUsage notes:",
			"- Results are cached for "+pages.TTL().String()+"; repeated requests inside that window do not hit the network",
			"- Every request is counted; see the page-count tool",
			"- This tool is read-only and does not modify any files",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch content from")),
	)
	s.AddTool(toolFetch, tools.WebFetchHandler(pages))

	toolCount := mcp.NewTool("page-count",
		mcp.WithDescription("Returns how many times a URL was requested through web-fetch since it was last fetched from the network"),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to report on")),
	)
	s.AddTool(toolCount, tools.PageCountHandler(pages))

	toolSearch := mcp.NewTool("web-search",
		mcp.WithDescription(multiline(
			"Searches the web and returns a numbered list of results",
			"\nUsage notes:",
			"- Identical queries are served from cache for "+searchPages.TTL().String(),
		)),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query to use")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (1-20, default 10)")),
	)
	s.AddTool(toolSearch, tools.WebSearchHandler(searcher))
	logger.Infof("Registered web-fetch, page-count and web-search tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

// openStore opens the configured backend. For the daemon driver it starts
// the daemon when nothing is listening yet.
func openStore(ctx context.Context, cfg cache.Config) (cache.Backend, error) {
	if cfg.Driver != cache.DriverDaemon {
		return cache.OpenBackend(ctx, cfg)
	}
	sock := cfg.SocketPath
	logger.Infof("Attempting to connect to cache daemon at %s", sock)
	err := probe(sock)
	if err == nil {
		return cache.OpenBackend(ctx, cfg)
	}
	logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
	if startErr := startCacheDaemon(); startErr != nil {
		logger.Errorf("Failed to start cache daemon: %v", startErr)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err = probe(sock); err == nil {
			logger.Infof("Cache daemon started successfully")
			return cache.OpenBackend(ctx, cfg)
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, err
}

func probe(sock string) error {
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return err
	}
	return conn.Close()
}

const daemonBinary = "web-cache-daemon"

func startCacheDaemon() error {
	candidates := []string{}
	// Next to this executable, then PATH, then the working directory.
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), daemonBinary))
	}
	if path, err := exec.LookPath(daemonBinary); err == nil {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, "./"+daemonBinary)

	for _, c := range candidates {
		if _, err := os.Stat(c); err != nil {
			continue
		}
		cmd := exec.Command(c)
		cmd.Env = os.Environ()
		return cmd.Start()
	}
	return exec.ErrNotFound
}
