package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
)

// Sheet names of the XLSX workbook
const (
	RequirementsSheet = "Requirements"
	SummarySheet      = "Summary"
)

var requirementHeaders = []string{
	"Requirement",
	"Description",
	"Test Procedure",
	"Guidance",
	"Applicability Notes",
}

// EncodeXLSX lays result out as a workbook. The Requirements sheet has
// one row per test procedure; a requirement without tests gets a single
// row with an empty test cell. The Summary sheet holds the counts and the
// language detection.
func EncodeXLSX(result *pipeline.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RequirementsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(RequirementsSheet)
	f.SetActiveSheet(activeIndex)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	for i, h := range requirementHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(RequirementsSheet, cell, h)
	}
	_ = f.SetCellStyle(RequirementsSheet, "A1", "E1", bold)

	row := 2
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(RequirementsSheet, cell, v)
	}
	for _, req := range result.Requirements {
		tests := req.Tests
		if len(tests) == 0 {
			tests = []string{""}
		}
		for _, test := range tests {
			write(1, req.ReqNum)
			write(2, req.Text)
			write(3, test)
			write(4, req.Guidance)
			write(5, req.Applicability)
			row++
		}
	}
	if row > 2 {
		last, _ := excelize.CoordinatesToCellName(len(requirementHeaders), row-1)
		_ = f.SetCellStyle(RequirementsSheet, "A2", last, wrap)
	}

	_ = f.SetColWidth(RequirementsSheet, "A", "A", 12) // identifier
	_ = f.SetColWidth(RequirementsSheet, "B", "B", 60) // requirement text
	_ = f.SetColWidth(RequirementsSheet, "C", "C", 60) // test
	_ = f.SetColWidth(RequirementsSheet, "D", "D", 50) // guidance
	_ = f.SetColWidth(RequirementsSheet, "E", "E", 40) // applicability

	det := result.Summary.LanguageDetection
	summary := [][2]any{
		{"Total requirements", result.Summary.Total},
		{"With tests", result.Summary.WithTests},
		{"With guidance", result.Summary.WithGuidance},
		{"Total tests", result.Summary.TotalTests},
		{"Language", det.Code},
		{"Language name", det.Name},
		{"Language name (EN)", det.NameEN},
		{"Extractor", det.ExtractorLabel},
		{"Confidence", det.ConfidencePercentage},
	}
	if det.FallbackReason != "" {
		summary = append(summary, [2]any{"Language choice", det.FallbackReason})
	}
	for _, w := range result.Warnings {
		summary = append(summary, [2]any{"Warning", w.Message})
	}
	for i, kv := range summary {
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold)
	_ = f.SetColWidth(SummarySheet, "A", "A", 22)
	_ = f.SetColWidth(SummarySheet, "B", "B", 50)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
