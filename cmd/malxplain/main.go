package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/y0ug/malxplain/internal/database"
	"github.com/y0ug/malxplain/internal/inference"
	"github.com/y0ug/malxplain/internal/malxplain"
	"github.com/y0ug/malxplain/internal/model"
	"github.com/y0ug/malxplain/internal/notifications"
	"github.com/y0ug/malxplain/internal/report"
	"github.com/y0ug/malxplain/internal/webserver"
	"github.com/y0ug/malxplain/pkg/auth"
)

const usage = `usage: malxplain <command> [flags]

commands:
  train     train candidate models and save the best one
  scan      analyze a single file
  scandir   analyze every file below a directory, or the paths listed in a file
  serve     serve the report API
  stats     print report statistics
  token     issue an API bearer token
`

func main() {
	ctx := context.Background()

	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found. Proceeding with environment variables.")
	}

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := malxplain.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "train":
		runTrain(ctx, cfg, args)
	case "scan":
		runScan(ctx, cfg, args)
	case "scandir":
		runScanDir(ctx, cfg, args)
	case "serve":
		runServe(ctx, cfg, args)
	case "stats":
		runStats(ctx, cfg)
	case "token":
		runToken(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runTrain(ctx context.Context, cfg *malxplain.Config, args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	manifest := fs.String("manifest", "", "CSV manifest of path,label rows (default: synthetic data)")
	out := fs.String("o", "", "Artifact output path (overrides MODEL_PATH)")
	fs.Parse(args)

	if *out != "" {
		cfg.ModelPath = *out
	}

	res, err := malxplain.Train(ctx, cfg, *manifest)
	if err != nil {
		logrus.Fatalf("Training failed: %v", err)
	}
	printTraining(os.Stdout, res)
}

// openPipeline wires the analysis pipeline. The returned cleanup closes the database.
func openPipeline(ctx context.Context, cfg *malxplain.Config) (*malxplain.Analyzer, *model.Registry, database.Database, func()) {
	dbConfig, err := database.LoadDatabaseConfig()
	if err != nil {
		logrus.Fatalf("Failed to load database configuration: %v", err)
	}
	db, err := database.Open(ctx, dbConfig, logrus.StandardLogger())
	if err != nil {
		logrus.Fatalf("Failed to initialize %s database: %v", dbConfig.Type, err)
	}

	notificationCfg, err := notifications.LoadNotificationConfig()
	if err != nil {
		logrus.Fatalf("Failed to load notification configuration: %v", err)
	}

	registry := cfg.NewRegistry()
	analyzerCfg := malxplain.AnalyzerConfig{
		MaxFileSize: cfg.MaxFileSize,
		Engine:      inference.NewEngine(registry),
		Assembler:   report.NewAssembler(db),
	}
	if notificationCfg.Enabled() {
		notifier, err := notifications.NewNotifier(notificationCfg.ShoutrrrURLs)
		if err != nil {
			logrus.Fatalf("Failed to initialize notifier: %v", err)
		}
		analyzerCfg.Notifier = notifier
		logrus.Info("Notifier initialized successfully")
	}

	cleanup := func() {
		if err := db.Close(ctx); err != nil {
			logrus.WithError(err).Error("Failed to close database")
		}
	}
	return malxplain.NewAnalyzer(analyzerCfg, cfg.ScanConcurrency), registry, db, cleanup
}

func runScan(ctx context.Context, cfg *malxplain.Config, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	behaviorPath := fs.String("behavior", "", "Behavior report (JSON or YAML) for the sample")
	asJSON := fs.Bool("json", false, "Print the full report as JSON")
	fs.Parse(args)
	if fs.NArg() != 1 {
		logrus.Fatal("scan expects exactly one file path")
	}

	analyzer, _, _, cleanup := openPipeline(ctx, cfg)
	defer cleanup()

	r, err := analyzer.Analyze(ctx, fs.Arg(0), *behaviorPath)
	if err != nil {
		cleanup()
		logrus.Fatalf("Analysis failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			logrus.WithError(err).Error("Failed to encode report")
		}
		return
	}
	printReport(os.Stdout, r)
}

func runScanDir(ctx context.Context, cfg *malxplain.Config, args []string) {
	fs := flag.NewFlagSet("scandir", flag.ExitOnError)
	listFile := fs.String("i", "", "File listing one sample path per line")
	fs.Parse(args)

	var paths []string
	switch {
	case *listFile != "":
		var err error
		paths, err = malxplain.ReadPathList(*listFile)
		if err != nil {
			logrus.Fatalf("Failed to read path list: %v", err)
		}
	case fs.NArg() == 1:
		var err error
		paths, err = malxplain.ListFiles(fs.Arg(0))
		if err != nil {
			logrus.Fatalf("Failed to list directory: %v", err)
		}
	default:
		logrus.Fatal("scandir expects a directory or -i <path list>")
	}

	analyzer, _, _, cleanup := openPipeline(ctx, cfg)
	defer cleanup()

	results := analyzer.ScanPaths(ctx, paths)
	printScan(os.Stdout, results)
}

func runServe(ctx context.Context, cfg *malxplain.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	warm := fs.Bool("warm", true, "Load or train the model before serving")
	fs.Parse(args)

	_, registry, db, cleanup := openPipeline(ctx, cfg)
	defer cleanup()

	if *warm {
		if _, err := registry.Get(ctx); err != nil {
			logrus.WithError(err).Warn("Model not available at startup")
		}
	}

	authConfig, err := auth.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to initialize auth config: %v", err)
	}
	logrus.Infof("API authentication enabled: %v", authConfig.Enabled())

	webServerConfig, err := webserver.NewWebserverConfig()
	if err != nil {
		logrus.Fatalf("Failed to load webserver configuration: %v", err)
	}

	ctxCancel, cancel := context.WithCancel(ctx)
	defer cancel()

	ws := webserver.NewWebServer(db, registry, webServerConfig, authConfig, logrus.StandardLogger())
	server, err := webserver.StartWebServer(ctxCancel, ws)
	if err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}

	// Listen for OS signals to handle graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	logrus.Infof("Received signal: %s. Initiating shutdown...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to gracefully shutdown the server: %v", err)
	}

	logrus.Info("Shutdown complete. Exiting.")
}

func runStats(ctx context.Context, cfg *malxplain.Config) {
	_, registry, db, cleanup := openPipeline(ctx, cfg)
	defer cleanup()

	if a, err := model.NewFileStore(cfg.ModelPath).Load(); err == nil {
		registry.Set(a)
	}
	stats, err := malxplain.GetStats(ctx, db, registry)
	if err != nil {
		cleanup()
		logrus.Fatalf("Failed to get stats: %v", err)
	}
	printStats(os.Stdout, stats)
}

func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("sub", "analyst", "Token subject")
	fs.Parse(args)

	authConfig, err := auth.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to initialize auth config: %v", err)
	}
	tokens, err := auth.IssueToken(*subject, authConfig)
	if err != nil {
		logrus.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(tokens.AccessToken)
}
