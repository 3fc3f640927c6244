package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/pci-dss-extractor/internal/config"
	"github.com/a3tai/pci-dss-extractor/internal/descriptions"
	"github.com/a3tai/pci-dss-extractor/internal/export"
	"github.com/a3tai/pci-dss-extractor/internal/logging"
	"github.com/a3tai/pci-dss-extractor/internal/pdf"
	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	serverInfo *pdf.ServerInfo
	writer     *export.Writer
	mcpServer  *server.MCPServer
	logger     *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	logger = logging.OrNop(logger)

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool set is fixed
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		serverInfo: pdf.NewServerInfo(pdfService, pdf.DefaultCacheTTL),
		writer:     export.NewWriter(cfg.OutputDirectory, logger),
		mcpServer:  mcpServer,
		logger:     logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	languageOption := mcp.WithString("language",
		mcp.Description("Force the document language (fr or en); detected when empty"),
		mcp.Enum("fr", "en"),
	)

	extractTool := mcp.NewTool(
		descriptions.ToolExtractRequirements,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolExtractRequirements)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, absolute or relative to the configured directory"),
		),
		languageOption,
	)
	s.mcpServer.AddTool(extractTool, s.handleExtractRequirements)

	detectTool := mcp.NewTool(
		descriptions.ToolDetectLanguage,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolDetectLanguage)),
		mcp.WithString("path",
			mcp.Description("Path to a PDF file whose text is analyzed"),
		),
		mcp.WithString("text",
			mcp.Description("Raw text to analyze instead of a PDF"),
		),
	)
	s.mcpServer.AddTool(detectTool, s.handleDetectLanguage)

	exportTool := mcp.NewTool(
		descriptions.ToolExportRequirements,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolExportRequirements)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default) or xlsx"),
			mcp.Enum("json", "xlsx"),
		),
		languageOption,
	)
	s.mcpServer.AddTool(exportTool, s.handleExportRequirements)

	validateTool := mcp.NewTool(
		descriptions.ToolValidatePDF,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolValidatePDF)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidatePDF)

	listTool := mcp.NewTool(
		descriptions.ToolListDocuments,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolListDocuments)),
		mcp.WithString("directory",
			mcp.Description("Directory to list (uses the configured directory if empty)"),
		),
	)
	s.mcpServer.AddTool(listTool, s.handleListDocuments)

	infoTool := mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolServerInfo)),
	)
	s.mcpServer.AddTool(infoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtractRequirements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.pdfService.ExtractFile(ctx, path, stringArg(request, "language"))
	if err != nil {
		return mcp.NewToolResultError(extractionMessage(path, err)), nil
	}

	body, err := json.MarshalIndent(res.Result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleDetectLanguage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := stringArg(request, "text")
	if path := stringArg(request, "path"); path != "" {
		doc, err := s.pdfService.ReadText(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text = doc.Text
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("either path or text is required"), nil
	}

	det := s.pdfService.Pipeline().Detect(text)
	body, err := json.MarshalIndent(det, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal detection: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleExportRequirements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := export.ParseFormat(stringArg(request, "format"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.pdfService.ExtractFile(ctx, path, stringArg(request, "language"))
	if err != nil {
		return mcp.NewToolResultError(extractionMessage(path, err)), nil
	}

	out, err := s.writer.Write(res.Result, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save results: %v", err)), nil
	}

	sum := res.Result.Summary
	text := fmt.Sprintf("Saved %d requirements to %s\n", sum.Total, out)
	text += fmt.Sprintf("Requirements with tests: %d\n", sum.WithTests)
	text += fmt.Sprintf("Requirements with guidance: %d\n", sum.WithGuidance)
	text += fmt.Sprintf("Total tests: %d\n", sum.TotalTests)
	text += fmt.Sprintf("Language: %s (%s)\n", sum.LanguageDetection.NameEN, sum.LanguageDetection.ConfidencePercentage)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleValidatePDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ValidateFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !result.Valid {
		return mcp.NewToolResultText(fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)), nil
	}

	text := fmt.Sprintf("PDF file %s is valid and readable\n", result.Path)
	if meta := result.Metadata; meta != nil {
		text += fmt.Sprintf("Version: %s\n", meta.Version)
		text += fmt.Sprintf("Pages: %d\n", meta.PageCount)
		text += fmt.Sprintf("Encrypted: %t\n", meta.Encrypted)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	directory := s.config.PDFDirectory
	if dir := stringArg(request, "directory"); dir != "" {
		directory = dir
	}

	files, err := s.pdfService.ListPDFs(directory, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(files) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No PDF files found in directory: %s", directory)), nil
	}

	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n\nFiles:\n", len(files), directory)
	for i, file := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.serverInfo.Info(s.config.ServerName, s.config.Version)
	return mcp.NewToolResultText(info.Format()), nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	if v, ok := request.GetArguments()[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// extractionMessage names the extraction failure the way clients expect
func extractionMessage(path string, err error) string {
	switch {
	case errors.Is(err, pipeline.ErrNoRequirements):
		return fmt.Sprintf("No requirements found in %s: %v", path, err)
	case errors.Is(err, pipeline.ErrEmptyInput), errors.Is(err, pdf.ErrNoText):
		return fmt.Sprintf("No text could be extracted from %s: %v", path, err)
	case pipeline.IsInputError(err):
		return fmt.Sprintf("Invalid input in %s: %v", path, err)
	default:
		return fmt.Sprintf("Extraction failed for %s: %v", path, err)
	}
}

// Run serves MCP over the process stdin/stdout until ctx ends or stdin closes
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve runs the stdio transport over in and out
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("starting MCP server in stdio mode",
		zap.String("name", s.config.ServerName),
		zap.String("version", s.config.Version),
		zap.String("pdf_directory", s.config.PDFDirectory))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// MCPServer exposes the underlying server, e.g. for in-process clients
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}
