package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pci-dss-extractor/internal/detect"
	"github.com/a3tai/pci-dss-extractor/internal/lexicon"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	ModeCLI    = "cli"
	ModeWatch  = "watch"

	// Output formats
	FormatJSON = "json"
	FormatXLSX = "xlsx"

	// Default values
	DefaultPort           = 8080
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultMaxFileSize    = 100 * 1024 * 1024 // 100MB
	DefaultWorkers        = 4
	DefaultRateLimit      = 5.0
	DefaultRateBurst      = 10
	DefaultRequestTimeout = 2 * time.Minute

	// EnvPrefix is prepended to every environment variable, e.g. PCI_EXTRACTOR_PORT
	EnvPrefix = "PCI_EXTRACTOR"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// ErrVersionRequested is returned by LoadFromFlags when --version is passed
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the PCI DSS extractor
type Config struct {
	// Server configuration
	Mode           string // "stdio", "server", "cli" or "watch"
	Host           string
	Port           int
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second per client, 0 disables
	RateBurst      int

	// PDF configuration
	PDFDirectory    string
	OutputDirectory string
	MaxFileSize     int64 // Maximum PDF file size in bytes
	StartPage       int   // first page read, 0 means the first page
	EndPage         int   // last page read, 0 means the last page

	// Extraction configuration
	Language               string // forced language code, empty means detect
	LowConfidenceThreshold float64
	Format                 string
	Workers                int

	// Inputs are the PDF paths given as positional arguments (cli mode)
	Inputs []string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	ConfigFile string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:                   ModeStdio, // Default to stdio mode for MCP compatibility
		Host:                   DefaultHost,
		Port:                   DefaultPort,
		RequestTimeout:         DefaultRequestTimeout,
		RateLimit:              DefaultRateLimit,
		RateBurst:              DefaultRateBurst,
		PDFDirectory:           currentDir,
		OutputDirectory:        currentDir,
		MaxFileSize:            DefaultMaxFileSize,
		LowConfidenceThreshold: detect.DefaultLowConfidenceThreshold,
		Format:                 FormatJSON,
		Workers:                DefaultWorkers,
		Version:                "1.0.0",
		ServerName:             "pci-dss-extractor",
		LogLevel:               DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags, environment variables and an
// optional config file, in increasing order of precedence: file, env, flags.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	populateConfigFromViper(cfg)
	cfg.Inputs = pflag.Args()

	// Expand paths if needed
	for _, dir := range []*string{&cfg.PDFDirectory, &cfg.OutputDirectory} {
		if *dir == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*dir); err == nil {
			*dir = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// PCI_EXTRACTOR_LOG_LEVEL maps to the "log-level" key
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("request-timeout", cfg.RequestTimeout)
	viper.SetDefault("rate-limit", cfg.RateLimit)
	viper.SetDefault("rate-burst", cfg.RateBurst)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("output", cfg.OutputDirectory)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("start-page", cfg.StartPage)
	viper.SetDefault("end-page", cfg.EndPage)
	viper.SetDefault("language", cfg.Language)
	viper.SetDefault("confidence-threshold", cfg.LowConfidenceThreshold)
	viper.SetDefault("format", cfg.Format)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("config", cfg.ConfigFile)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' (MCP), 'server' (HTTP), 'cli' (files as arguments) or 'watch' (directory)")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.Duration("request-timeout", cfg.RequestTimeout, "Maximum duration of one HTTP request (server mode only)")
	pflag.Float64("rate-limit", cfg.RateLimit, "Extraction requests per second per client, 0 disables (server mode only)")
	pflag.Int("rate-burst", cfg.RateBurst, "Burst size of the per-client rate limit (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	pflag.String("output", cfg.OutputDirectory, "Directory receiving extraction results (cli and watch modes)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("start-page", cfg.StartPage, "First page to read, 0 for the first page")
	pflag.Int("end-page", cfg.EndPage, "Last page to read, 0 for the last page")
	pflag.String("language", cfg.Language, "Force the extraction language (fr, en); empty to detect")
	pflag.Float64("confidence-threshold", cfg.LowConfidenceThreshold, "Detection confidence under which a warning is reported (0 disables the warning)")
	pflag.String("format", cfg.Format, "Output format: 'json' or 'xlsx'")
	pflag.Int("workers", cfg.Workers, "Number of PDFs extracted concurrently")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("config", cfg.ConfigFile, "Optional config file (yaml, toml or json)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	pflag.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPCI DSS Extractor - extracts requirements, test procedures and guidance from PCI DSS PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# MCP stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=5000                "+
			"# HTTP API with /health and /api/extract\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=cli --format=xlsx saq_d.pdf       # extract files\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=watch --dir=./in --output=./out   # extract new PDFs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_MODE          Run mode\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_HOST          Server host\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_PORT          Server port\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_DIR           PDF directory\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_OUTPUT        Output directory\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LANGUAGE      Forced language\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LOG_LEVEL     Log level\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_MAX_FILE_SIZE Maximum file size\n", EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.RequestTimeout = viper.GetDuration("request-timeout")
	cfg.RateLimit = viper.GetFloat64("rate-limit")
	cfg.RateBurst = viper.GetInt("rate-burst")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("output")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.StartPage = viper.GetInt("start-page")
	cfg.EndPage = viper.GetInt("end-page")
	cfg.Language = strings.ToLower(viper.GetString("language"))
	cfg.LowConfidenceThreshold = viper.GetFloat64("confidence-threshold")
	cfg.Format = strings.ToLower(viper.GetString("format"))
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.ConfigFile = viper.GetString("config")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeStdio, ModeServer, ModeCLI, ModeWatch:
	default:
		return errors.New("mode must be one of 'stdio', 'server', 'cli' or 'watch'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Mode == ModeCLI && len(c.Inputs) == 0 {
		return errors.New("cli mode needs at least one PDF path argument")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if err := ensureDir(c.PDFDirectory, "PDF"); err != nil {
		return err
	}

	if c.Mode == ModeCLI || c.Mode == ModeWatch {
		if c.OutputDirectory == "" {
			return errors.New("output directory cannot be empty")
		}
		if err := ensureDir(c.OutputDirectory, "output"); err != nil {
			return err
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.StartPage < 0 || c.EndPage < 0 {
		return errors.New("page numbers cannot be negative")
	}
	if c.EndPage > 0 && c.StartPage > c.EndPage {
		return fmt.Errorf("start page %d is after end page %d", c.StartPage, c.EndPage)
	}

	if c.Language != "" {
		if _, ok := lexicon.Default().Lookup(c.Language); !ok {
			return fmt.Errorf("unsupported language: %s (must be one of: %s)",
				c.Language, strings.Join(lexicon.Default().Codes(), ", "))
		}
	}

	if c.LowConfidenceThreshold < 0 || c.LowConfidenceThreshold > 1 {
		return errors.New("confidence threshold must be between 0 and 1")
	}

	if c.Format != FormatJSON && c.Format != FormatXLSX {
		return fmt.Errorf("invalid format: %s (must be one of: json, xlsx)", c.Format)
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if c.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.New("rate burst must be at least 1 when rate limiting is enabled")
	}

	if c.Mode == ModeServer && c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ensureDir creates dir when it does not exist
func ensureDir(dir, what string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s directory %s: %w", what, dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access %s directory %s: %w", what, dir, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"Format: %s, Language: %q, Pages: %d-%d, Workers: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.Format, c.Language, c.StartPage, c.EndPage, c.Workers, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsCLIMode returns true if PDFs are given on the command line
func (c *Config) IsCLIMode() bool {
	return c.Mode == ModeCLI
}

// IsWatchMode returns true if the PDF directory is watched for new files
func (c *Config) IsWatchMode() bool {
	return c.Mode == ModeWatch
}
