package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nomis52/signup/app"
	"github.com/nomis52/signup/buildinfo"
	"github.com/nomis52/signup/clients/activityclient"
	"github.com/nomis52/signup/config"
	"github.com/nomis52/signup/console"
	"github.com/nomis52/signup/logging"
	"github.com/nomis52/signup/metrics"
	"github.com/nomis52/signup/page"
	"github.com/nomis52/signup/refresh"
	"github.com/nomis52/signup/statusreporter"
)

// flushTimeout bounds how long exit waits for queued metrics.
const flushTimeout = 5 * time.Second

type Args struct {
	ConfigPath  string
	ShowVersion bool
	Validate    bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	if args.ShowVersion {
		showVersion()
		return nil
	}

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if args.Validate {
		fmt.Printf("Configuration validation successful: %s\n", describeSource(args.ConfigPath))
		return nil
	}

	collector := logging.NewLogCollector(logging.DefaultCollectorCapacity)
	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	}, logging.WithCollector(collector))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	props := buildinfo.Get()
	logger.Info("signup client started",
		"build_time", props.BuildTime,
		"git_commit", props.GitCommit,
		"config_path", args.ConfigPath,
		"api", cfg.API.BaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := metrics.NewRegistry(metrics.Config{
		PushURL: cfg.Monitoring.VictoriaMetricsURL,
		Prefix:  cfg.Monitoring.MetricsPrefix,
		Job:     cfg.Monitoring.JobName,
		Logger:  logger.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics registry: %w", err)
	}
	switch r := registry.(type) {
	case *metrics.ScrapeRegistry:
		if cfg.Monitoring.ListenAddr != "" {
			go func() {
				if err := r.Serve(ctx, cfg.Monitoring.ListenAddr, logger.Logger); err != nil {
					logger.Error("metrics server failed", "error", err)
				}
			}()
		}
	case *metrics.PushRegistry:
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			if err := r.Close(flushCtx); err != nil {
				logger.Warn("failed to flush metrics", "error", err)
			}
		}()
	}
	clientMetrics, err := metrics.NewClientMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	client, err := activityclient.New(cfg.API.BaseURL,
		activityclient.WithLogger(logger.Logger),
		activityclient.WithTimeout(cfg.API.Timeout),
		activityclient.WithMetrics(clientMetrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	banner := statusreporter.New(
		statusreporter.WithHideAfter(cfg.Banner.HideAfter),
		statusreporter.WithLogger(logger.Logger),
	)
	pg := page.New(banner)

	var con *console.Console
	signupApp := app.New(client, pg,
		app.WithLogger(logger.Logger),
		app.WithConfirmer(app.ConfirmFunc(func(prompt string) bool {
			return con.Confirm(prompt)
		})),
	)
	con = console.New(pg, signupApp, os.Stdin, os.Stdout,
		console.WithCollector(collector),
		console.WithLogger(logger.Logger),
	)

	if cfg.Refresh.Schedule != "" {
		trigger, err := refresh.NewTrigger(cfg.Refresh.Schedule, signupApp, logger.Logger)
		if err != nil {
			return fmt.Errorf("failed to create refresh trigger: %w", err)
		}
		logger.Info("scheduled refresh enabled", "schedule", trigger.Spec(), "next_run", trigger.NextRun())
		trigger.Start(ctx)
	}

	signupApp.Start(ctx)
	err = con.Run(ctx)
	stop()
	signupApp.Wait()
	logger.Info("signup client stopped")
	return err
}

func describeSource(path string) string {
	if path == "" {
		return "defaults and environment"
	}
	return path
}

func showVersion() {
	props := buildinfo.Get()
	fmt.Printf("signup %s\n", props.Version)
	fmt.Printf("Built: %s\n", props.BuildTime)
	fmt.Printf("Commit: %s\n", props.GitCommit)
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nActivity signup terminal client\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  SIGNUP_API_URL, SIGNUP_LOG_LEVEL, ... override the config file; a .env file is loaded if present\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config ~/.config/signup/config.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config config.yaml --validate\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	return Args{
		ConfigPath:  path,
		ShowVersion: *showVersion || *versionShort,
		Validate:    *validate,
	}
}
