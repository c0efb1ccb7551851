package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/google/go-github/v75/github"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/deliveries"
	"github.com/forgebot/forgebot/internal/dispatch"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/log"
	"github.com/forgebot/forgebot/internal/plugins"
	"github.com/forgebot/forgebot/internal/storage"
	"github.com/forgebot/forgebot/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "dispatch":
		os.Exit(runDispatch(args))
	case "serve":
		os.Exit(runServe(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "plugin":
		os.Exit(runPluginNoun(args))
	case "version":
		fmt.Printf("forgebot version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`forgebot - GitHub webhook event dispatcher

Usage:
  forgebot <command> [flags]

Commands:
  dispatch      Process a single event payload and print the summary
  serve         Run the webhook receiver in the foreground
  config check  Validate configuration syntax and integrity
  config lock   Authorize current configuration state (update hashes)
  plugin list   Show the builtin plugin catalog
  version       Show version information
  help          Show this help message

Dispatch flags:
  --config PATH       Configuration file (required)
  --event NAME        Webhook event name, e.g. issue_comment (required)
  --payload PATH      Payload JSON file, or - for stdin (required)
  --plugins LIST      Comma-separated plugin selection override
  --delivery-id ID    Delivery GUID (generated when omitted)
`)
}

// loadConfig loads the file and applies the environment fallbacks shared
// by every mode.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	cfg.Service.Workflow = os.Getenv("GITHUB_WORKFLOW")
	cfg.Service.RunID = os.Getenv("GITHUB_RUN_ID")

	return cfg, nil
}

// newGitHubClient builds the API client, honoring an enterprise base URL.
func newGitHubClient(cfg *config.Config) (*github.Client, error) {
	client := github.NewClient(nil)
	if cfg.GitHub.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.GitHub.BaseURL, cfg.GitHub.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base URL: %w", err)
		}
	}
	if cfg.GitHub.Token != "" {
		client = client.WithAuthToken(cfg.GitHub.Token)
	}
	return client, nil
}

func runDispatch(args []string) int {
	fs := flag.NewFlagSet("dispatch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	eventName := fs.String("event", "", "Webhook event name")
	payloadPath := fs.String("payload", "", "Payload JSON file, or - for stdin")
	pluginList := fs.String("plugins", "", "Comma-separated plugin selection")
	deliveryID := fs.String("delivery-id", "", "Delivery GUID")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *eventName == "" || *payloadPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: forgebot dispatch --config PATH --event NAME --payload PATH [--plugins LIST] [--delivery-id ID]")
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Service.LogLevel)

	if *pluginList != "" {
		config.SetPluginList(cfg, *pluginList)
	}

	payload, err := readPayload(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Payload error: %v\n", err)
		return 1
	}

	client, err := newGitHubClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
		return 1
	}

	hub := events.NewHub(cfg.Service.EventsCap)
	d, err := dispatch.New(cfg, plugins.Builtin(client), hub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup error: %v\n", err)
		return 1
	}

	summary, err := d.Dispatch(context.Background(), *eventName, *deliveryID, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dispatch error: %v\n", err)
		return 1
	}

	printSummary(summary)
	return 0
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// printSummary emits the summary outputs as stable key=value lines.
// Per-plugin failures are already reflected in the structured log; the
// exit code stays zero because the dispatch itself completed.
func printSummary(summary *dispatch.Summary) {
	keys := make([]string, 0, len(summary.Outputs))
	for k := range summary.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, summary.Outputs[k])
	}
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Service.LogLevel)

	if err := config.VerifyIntegrity(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Integrity error: %v\n", err)
		return 1
	}
	if cfg.Webhook == nil {
		fmt.Fprintln(os.Stderr, "serve requires a webhook section in the configuration")
		return 1
	}

	client, err := newGitHubClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
		return 1
	}

	hub := events.NewHub(cfg.Service.EventsCap)
	d, err := dispatch.New(cfg, plugins.Builtin(client), hub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *deliveries.Store
	if cfg.State.Path != "" {
		db, err := storage.OpenSQLite(ctx, cfg.State.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Storage error: %v\n", err)
			return 1
		}
		defer db.Close()
		store = deliveries.NewStore(db)
	}

	srv := webhook.New(*cfg.Webhook, d, store, hub)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}

	log.Info("shutdown complete")
	return 0
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: forgebot config <check|lock> [flags]")
		return 1
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "lock":
		return runConfigLock(actionArgs)
	case "help", "--help", "-h":
		fmt.Println("Usage: forgebot config <check|lock> --config PATH")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		return 1
	}

	if err := config.VerifyIntegrity(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		return 1
	}

	if unknown := unknownPlugins(cfg); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "FAILED: unknown plugins in configuration: %s\n", strings.Join(unknown, ", "))
		return 1
	}

	fmt.Println("Configuration check PASSED")
	return 0
}

// unknownPlugins lists configured plugin names that no builtin provides.
func unknownPlugins(cfg *config.Config) []string {
	known := map[string]bool{}
	for _, p := range plugins.Builtin(github.NewClient(nil)) {
		known[p.Name] = true
	}

	var unknown []string
	for name := range cfg.Plugins {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	for _, name := range cfg.PluginList {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: forgebot config lock --config PATH")
		return 1
	}

	if err := config.Lock(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Lock error: %v\n", err)
		return 1
	}
	fmt.Println("Configuration state authorized")
	return 0
}

func runPluginNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: forgebot plugin <list> [flags]")
		return 1
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		return runPluginList(actionArgs)
	case "help", "--help", "-h":
		fmt.Println("Usage: forgebot plugin list [--config PATH]")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown plugin action: %s\n", action)
		return 1
	}
}

func runPluginList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (optional, resolves enabled flags)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
			return 1
		}
	}

	for _, p := range plugins.Builtin(github.NewClient(nil)) {
		enabled := true
		if cfg != nil {
			if pc, ok := cfg.Plugins[p.Name]; ok {
				enabled = pc.IsEnabled()
			}
		}

		var cats []string
		for _, c := range p.Categories() {
			cats = append(cats, string(c))
		}

		fmt.Printf("%-10s enabled=%-5t %s\n", p.Name, enabled, p.Description)
		fmt.Printf("           categories: %s\n", strings.Join(cats, ", "))
		for _, u := range p.Usage {
			fmt.Printf("           usage: %s\n", u)
		}
	}
	return 0
}
