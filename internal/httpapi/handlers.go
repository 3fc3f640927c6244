package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/pci-dss-extractor/internal/detect"
	"github.com/a3tai/pci-dss-extractor/internal/export"
	"github.com/a3tai/pci-dss-extractor/internal/pdf"
	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
	"github.com/a3tai/pci-dss-extractor/internal/segment"
)

// maxDetectBody caps the text accepted by the detect endpoint
const maxDetectBody = 10 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errorResponse is the body of every failed request
type errorResponse struct {
	Error             string         `json:"error"`
	LanguageDetection *detect.Result `json:"language_detection,omitempty"`
}

type detectRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "PCI DSS Extractor API is running",
		"version": s.config.Version,
	})
}

// handleExtract accepts a multipart upload with the PDF in the "file" field.
// Optional form or query values: language (fr, en), sort (number) and
// format (json, xlsx).
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxFileSize()+uploadOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		s.respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !pdf.HasPDFExtension(header.Filename) {
		s.respondError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	format, err := export.ParseFormat(r.FormValue("format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	s.logger.Debug("extract request",
		zap.String("filename", header.Filename),
		zap.Int("size", len(data)))

	res, err := s.service.ExtractBytes(r.Context(), header.Filename, data, strings.TrimSpace(r.FormValue("language")))
	if err != nil {
		s.respondExtractionError(w, res, err)
		return
	}

	result := res.Result
	if r.FormValue("sort") == "number" {
		result.Requirements = segment.SortByNumber(result.Requirements)
	}

	filename := pipeline.SuggestedFilename(result.Summary.LanguageDetection.Code, s.now(), string(format))
	w.Header().Set("X-Suggested-Filename", filename)

	if format == export.FormatXLSX {
		body, err := export.EncodeXLSX(result)
		if err != nil {
			s.logger.Error("xlsx encoding failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "Server error: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDetectBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.respondJSON(w, http.StatusOK, s.service.Pipeline().Detect(req.Text))
}

func (s *Server) respondExtractionError(w http.ResponseWriter, res *pdf.FileResult, err error) {
	var det *detect.Result
	if res != nil && res.Result != nil {
		det = &res.Result.Summary.LanguageDetection
	}

	switch {
	case errors.Is(err, pipeline.ErrNoRequirements):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "No PCI requirements found in PDF", LanguageDetection: det})
	case errors.Is(err, pdf.ErrNotPDF):
		s.respondError(w, http.StatusBadRequest, "Only PDF files are allowed")
	case errors.Is(err, pdf.ErrEmptyFile):
		s.respondError(w, http.StatusBadRequest, "No file selected")
	case errors.Is(err, pdf.ErrFileTooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, pipeline.ErrUnknownLanguage):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pdf.ErrInvalidPDF), errors.Is(err, pdf.ErrNoText), errors.Is(err, pdf.ErrPageWindow),
		pipeline.IsInputError(err):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.respondError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.logger.Error("extraction failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Server error: "+err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}
