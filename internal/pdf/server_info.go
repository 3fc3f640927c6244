package pdf

import (
	"fmt"
	"sync"
	"time"

	"github.com/a3tai/pci-dss-extractor/internal/descriptions"
)

// Defaults for the server info directory listing
const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultListingLimit  = 100
	serverInfoShownFiles = 10
)

// DirectoryCache provides TTL-based caching for directory listings
type DirectoryCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

type cacheEntry struct {
	files      []FileInfo
	lastUpdate time.Time
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached listing of path and its age, if still valid
func (c *DirectoryCache) Get(path string) ([]FileInfo, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists {
		return nil, 0, false
	}

	age := c.now().Sub(entry.lastUpdate)
	if age > c.ttl {
		return nil, 0, false
	}
	return entry.files, age, true
}

// Set stores the listing of path
func (c *DirectoryCache) Set(path string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = cacheEntry{files: files, lastUpdate: c.now()}
}

// Clear removes expired entries from cache
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for path, entry := range c.entries {
		if now.Sub(entry.lastUpdate) > c.ttl {
			delete(c.entries, path)
		}
	}
}

// Len returns the number of entries, expired ones included
func (c *DirectoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ToolInfo describes one MCP tool for the server info listing
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult is what the server info tool reports
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	Directory         string     `json:"directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	Window            PageWindow `json:"page_window"`
	Languages         []string   `json:"languages"`
	ForcedLanguage    string     `json:"forced_language,omitempty"`
	Threshold         float64    `json:"low_confidence_threshold"`
	Tools             []ToolInfo `json:"tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	FromCache         bool       `json:"from_cache"`
	ListingError      string     `json:"listing_error,omitempty"`
}

// ServerInfo assembles server capabilities and the configured directory
// contents. Directory listings are cached so repeated calls stay fast.
type ServerInfo struct {
	service *Service
	cache   *DirectoryCache
	limit   int
}

// NewServerInfo creates a server info provider backed by service
func NewServerInfo(service *Service, ttl time.Duration) *ServerInfo {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ServerInfo{
		service: service,
		cache:   NewDirectoryCache(ttl),
		limit:   DefaultListingLimit,
	}
}

// Cache exposes the directory cache
func (p *ServerInfo) Cache() *DirectoryCache {
	return p.cache
}

// Info returns the server information. A failing directory listing is
// reported in the result rather than failing the call.
func (p *ServerInfo) Info(serverName, version string) *ServerInfoResult {
	pl := p.service.Pipeline()
	result := &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		Directory:         p.service.Directory(),
		MaxFileSize:       p.service.MaxFileSize(),
		Window:            p.service.Window(),
		Languages:         pl.Languages(),
		ForcedLanguage:    pl.ForcedLanguage(),
		Threshold:         pl.Threshold(),
		Tools:             availableTools(),
		DirectoryContents: []FileInfo{},
	}

	if result.Directory == "" {
		return result
	}

	if files, _, ok := p.cache.Get(result.Directory); ok {
		result.DirectoryContents = files
		result.FromCache = true
		return result
	}

	files, err := p.service.ListPDFs(result.Directory, p.limit)
	if err != nil {
		result.ListingError = err.Error()
		return result
	}
	p.cache.Set(result.Directory, files)
	result.DirectoryContents = files
	return result
}

// Format renders the result as the text returned to MCP clients
func (r *ServerInfoResult) Format() string {
	text := fmt.Sprintf("%s v%s - Server Information\n", r.ServerName, r.Version)
	if r.Directory != "" {
		text += fmt.Sprintf("Directory: %s\n", r.Directory)
	}
	text += fmt.Sprintf("Max File Size: %d MB\n", r.MaxFileSize/(1024*1024))
	if r.Window.Start > 0 || r.Window.End > 0 {
		text += fmt.Sprintf("Page Window: %d-%d\n", r.Window.Start, r.Window.End)
	}
	text += fmt.Sprintf("Languages: %v", r.Languages)
	if r.ForcedLanguage != "" {
		text += fmt.Sprintf(" (forced: %s)", r.ForcedLanguage)
	}
	text += fmt.Sprintf("\nLow Confidence Threshold: %.2f\n\n", r.Threshold)

	switch {
	case r.ListingError != "":
		text += fmt.Sprintf("Directory Contents: unavailable (%s)\n\n", r.ListingError)
	case len(r.DirectoryContents) > 0:
		text += fmt.Sprintf("Directory Contents (%d PDF files found):\n", len(r.DirectoryContents))
		for i, file := range r.DirectoryContents {
			if i >= serverInfoShownFiles {
				text += fmt.Sprintf("   ... and %d more files\n", len(r.DirectoryContents)-serverInfoShownFiles)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	case r.Directory != "":
		text += "Directory Contents: No PDF files found\n\n"
	}

	text += "Available Tools:\n"
	for _, tool := range r.Tools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	return text
}

func availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        descriptions.ToolExtractRequirements,
			Description: descriptions.Summary(descriptions.ToolExtractRequirements),
			Parameters:  "path (required): PDF file path, language (optional): fr or en to skip detection",
		},
		{
			Name:        descriptions.ToolDetectLanguage,
			Description: descriptions.Summary(descriptions.ToolDetectLanguage),
			Parameters:  "path or text (one required)",
		},
		{
			Name:        descriptions.ToolExportRequirements,
			Description: descriptions.Summary(descriptions.ToolExportRequirements),
			Parameters:  "path (required), format (optional): json or xlsx, language (optional)",
		},
		{
			Name:        descriptions.ToolValidatePDF,
			Description: descriptions.Summary(descriptions.ToolValidatePDF),
			Parameters:  "path (required): PDF file path",
		},
		{
			Name:        descriptions.ToolListDocuments,
			Description: descriptions.Summary(descriptions.ToolListDocuments),
			Parameters:  "directory (optional): defaults to the configured directory",
		},
		{
			Name:        descriptions.ToolServerInfo,
			Description: descriptions.Summary(descriptions.ToolServerInfo),
			Parameters:  "No parameters required",
		},
	}
}
