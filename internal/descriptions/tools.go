package descriptions

import (
	"sort"
	"strings"
)

// Tool names exposed by the MCP server
const (
	ToolExtractRequirements = "pci_extract_requirements"
	ToolDetectLanguage      = "pci_detect_language"
	ToolExportRequirements  = "pci_export_requirements"
	ToolValidatePDF         = "pci_validate_pdf"
	ToolListDocuments       = "pci_list_documents"
	ToolServerInfo          = "pci_server_info"
)

// Comprehensive tool descriptions with practical examples and use cases

const (
	ExtractRequirementsDescription = `Extract numbered PCI DSS requirements, their test procedures and guidance from a SAQ D PDF.

**When to use:** Need the structured content of a PCI DSS Self-Assessment Questionnaire (French or English edition) for review, gap analysis or import into a compliance tool.

**Why it's useful:** Detects the document language, removes page headers, footers and response boxes, and returns one record per requirement with its tests and guidance.

**Examples:**
• Gap analysis: "Extract all requirements from saq_d_v4.pdf and list those without guidance"
• French edition: "Extraire les exigences de saq_d_fr.pdf"
• Forced language: "Extract requirements from scan.pdf as English"

**Common workflows:**
1. Review: Validate PDF → Extract requirements → Filter by chapter
2. Tooling import: Extract requirements → Export to xlsx → Load into tracker
3. Ambiguous documents: Detect language → Extract with a forced language

**Best practices:** Check language_detection.confidence_percentage in the summary; below 55% the language guess is ambiguous and a forced language is safer.`

	DetectLanguageDescription = `Identify whether a PCI DSS document is French or English, with a confidence score.

**When to use:** Before extraction when the edition of a document is unknown, or to understand why an extraction returned few requirements.

**Why it's useful:** Scores both languages on their PCI DSS vocabulary and reports the winner, its confidence and whether the French fallback was applied.

**Examples:**
• Triage: "Which language is saq_d.pdf written in?"
• Debugging: "Why did extraction of report.pdf find no requirements?"

**Common workflows:**
1. Detect language → Extract with the detected or a forced language

**Best practices:** A fallback result with reason "no_keywords" usually means the PDF has no text layer.`

	ExportRequirementsDescription = `Extract requirements from a PDF and write them to the output directory as JSON or XLSX.

**When to use:** Need a file artifact of the extraction to share, archive or open in a spreadsheet.

**Why it's useful:** Names files pci_requirements_<language>_<timestamp>, validates JSON output against the published schema, and lays out XLSX with one row per test procedure.

**Examples:**
• Spreadsheet: "Export the requirements of saq_d.pdf as xlsx"
• Archive: "Save the extraction of saq_d_fr.pdf as JSON"

**Common workflows:**
1. Export JSON → Diff against a previous export
2. Export XLSX → Assign owners per requirement

**Best practices:** The returned path lies in the configured output directory.`

	ValidatePDFDescription = `Verify that a file is a readable PDF and report its version, page count and encryption.

**When to use:** Before extraction, especially for user uploads or batch runs over unknown files.

**Why it's useful:** Catches corrupted, oversized or encrypted files early with a clear message.

**Examples:**
• Upload verification: "Check saq_upload.pdf is valid before extracting"

**Best practices:** Encrypted SAQ files usually yield no text; decrypt them first.`

	ListDocumentsDescription = `List the PDF files available in the configured directory or a subdirectory of it.

**When to use:** To discover which SAQ documents can be extracted.

**Why it's useful:** Returns names, sizes and modification times, sorted by path, skipping hidden directories.

**Examples:**
• Discovery: "Which PCI documents are available?"`

	ServerInfoDescription = `Get server information, supported languages, available tools and the configured directory contents.

**When to use:** At the start of a session to learn what the server can do and which documents it can see.

**Why it's useful:** Summarizes limits (max file size, page window), the language policy and the directory listing in one call.

**Best practices:** Directory listings are cached for a few minutes; use pci_list_documents for a fresh listing.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	ToolExtractRequirements: ExtractRequirementsDescription,
	ToolDetectLanguage:      DetectLanguageDescription,
	ToolExportRequirements:  ExportRequirementsDescription,
	ToolValidatePDF:         ValidatePDFDescription,
	ToolListDocuments:       ListDocumentsDescription,
	ToolServerInfo:          ServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// Summary returns the first line of a tool description
func Summary(toolName string) string {
	first, _, _ := strings.Cut(GetToolDescription(toolName), "\n")
	return first
}

// GetAllToolNames returns a sorted list of all available tool names
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
