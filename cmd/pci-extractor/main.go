package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/a3tai/pci-dss-extractor/internal/config"
	"github.com/a3tai/pci-dss-extractor/internal/export"
	"github.com/a3tai/pci-dss-extractor/internal/httpapi"
	"github.com/a3tai/pci-dss-extractor/internal/logging"
	"github.com/a3tai/pci-dss-extractor/internal/mcp"
	"github.com/a3tai/pci-dss-extractor/internal/pdf"
	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
	"github.com/a3tai/pci-dss-extractor/internal/watch"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("exiting", zap.String("mode", cfg.Mode), zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run starts the mode selected by cfg and blocks until it ends
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) error {
	logger.Debug("starting", zap.Stringer("config", cfg))

	service, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	switch cfg.Mode {
	case config.ModeStdio:
		server, err := mcp.NewServer(cfg, service, logger)
		if err != nil {
			return fmt.Errorf("create MCP server: %w", err)
		}
		return server.Run(ctx)

	case config.ModeServer:
		server, err := httpapi.NewServer(cfg, service, logger)
		if err != nil {
			return fmt.Errorf("create HTTP server: %w", err)
		}
		return server.Run(ctx)

	case config.ModeCLI:
		return runCLI(ctx, cfg, service, logger, stdout)

	case config.ModeWatch:
		return runWatch(ctx, cfg, service, logger)

	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// newService builds the extraction pipeline and the PDF service around it.
// cli mode reads the paths it is given; every other mode is confined to the
// PDF directory.
func newService(cfg *config.Config, logger *zap.Logger) (*pdf.Service, error) {
	p, err := pipeline.New(pipeline.Options{
		ForceLanguage:          cfg.Language,
		LowConfidenceThreshold: pipeline.Threshold(cfg.LowConfidenceThreshold),
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	dir := cfg.PDFDirectory
	if cfg.IsCLIMode() {
		dir = ""
	}

	service, err := pdf.NewService(p, pdf.Options{
		MaxFileSize: cfg.MaxFileSize,
		Directory:   dir,
		Window:      pdf.PageWindow{Start: cfg.StartPage, End: cfg.EndPage},
		Workers:     cfg.Workers,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create pdf service: %w", err)
	}
	return service, nil
}

// runCLI extracts every input file, saves the results and prints one line
// per file. It fails when at least one file could not be extracted.
func runCLI(ctx context.Context, cfg *config.Config, service *pdf.Service, logger *zap.Logger, stdout io.Writer) error {
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	writer := export.NewWriter(cfg.OutputDirectory, logger)

	results, err := service.ExtractFiles(ctx, cfg.Inputs, "")
	if err != nil {
		return fmt.Errorf("extraction interrupted: %w", err)
	}

	failed := 0
	for _, res := range results {
		if res.Err == nil {
			path, werr := writer.Write(res.Result, format)
			if werr != nil {
				res.SetError(werr)
			} else {
				res.OutputPath = path
			}
		}
		if res.Err != nil {
			failed++
		}
		printResult(stdout, res)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
	}
	return nil
}

func printResult(w io.Writer, res *pdf.FileResult) {
	if res.Err != nil {
		fmt.Fprintf(w, "✗ %s: %s\n", res.Path, res.Error)
		return
	}

	s := res.Result.Summary
	fmt.Fprintf(w, "✓ %s: %d requirements (%d with tests, %d with guidance, %d tests)\n",
		res.Path, s.Total, s.WithTests, s.WithGuidance, s.TotalTests)
	fmt.Fprintf(w, "  language: %s (%s), confidence %s\n",
		s.LanguageDetection.Name, s.LanguageDetection.Code, s.LanguageDetection.ConfidencePercentage)
	for _, warning := range res.Result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning.Message)
	}
	fmt.Fprintf(w, "  saved to: %s\n", res.OutputPath)
}

func runWatch(ctx context.Context, cfg *config.Config, service *pdf.Service, logger *zap.Logger) error {
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	w, err := watch.New(cfg.PDFDirectory, service, export.NewWriter(cfg.OutputDirectory, logger),
		watch.WithLogger(logger),
		watch.WithFormat(format),
		watch.WithSyncExisting(true),
	)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	return w.Run(ctx)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "PCI DSS Extractor\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
