package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/payrecon/internal/pages"
	"github.com/dgallion1/payrecon/internal/pipeline"
	"github.com/dgallion1/payrecon/internal/reconcile"
	"github.com/dgallion1/payrecon/internal/report"
	"github.com/go-chi/chi/v5"
)

// debugLines is how many lines of each side's first page a debug response
// carries.
const debugLines = 20

// Output formats of a comparison.
const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatHTML     = "html"
	formatXLSX     = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// compareRequest is a parsed comparison upload.
type compareRequest struct {
	a, b   pipeline.Upload
	mode   pages.Mode
	format string
	debug  bool
}

// sourceInfo describes how one side's pages were read.
type sourceInfo struct {
	Filename string   `json:"filename"`
	Method   string   `json:"method"`
	Pages    int      `json:"pages"`
	Warnings []string `json:"warnings"`
}

func newSourceInfo(u pipeline.Upload, d pages.Document) sourceInfo {
	w := d.Warnings
	if w == nil {
		w = []string{}
	}
	return sourceInfo{Filename: u.Name, Method: d.Method, Pages: len(d.Pages), Warnings: w}
}

// compareResponse is the JSON body of a synchronous comparison.
type compareResponse struct {
	Rows    []reconcile.Row       `json:"rows"`
	Summary reconcile.Summary     `json:"summary"`
	Sources map[string]sourceInfo `json:"sources"`
	Debug   map[string]string     `json:"debug,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	req, status, err := s.readCompareRequest(w, r)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	cmp := s.orchestrator.Comparer()
	out, err := cmp.Compare(r.Context(), req.a, req.b, req.mode)
	if err != nil {
		s.log.Error("comparison failed", "error", err)
		jsonError(w, err.Error(), compareErrorStatus(err))
		return
	}

	switch req.format {
	case formatMarkdown, formatHTML, formatXLSX:
		s.writeReport(w, req.format, out.Rows, req.a.Name, req.b.Name)
		return
	}

	resp := compareResponse{
		Rows:    out.Rows,
		Summary: reconcile.Summarize(out.Rows),
		Sources: map[string]sourceInfo{
			"a": newSourceInfo(req.a, out.DocA),
			"b": newSourceInfo(req.b, out.DocB),
		},
	}
	if req.debug {
		resp.Debug = map[string]string{
			"a_first_lines": firstLines(out.DocA.Pages, debugLines),
			"b_first_lines": firstLines(out.DocB.Pages, debugLines),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	req, status, err := s.readCompareRequest(w, r)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	job := pipeline.NewJob(req.a, req.b, req.mode)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/compare/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", formatMarkdown:
		format = formatMarkdown
	case formatHTML, formatXLSX:
	default:
		jsonError(w, "format must be markdown, html or xlsx", http.StatusBadRequest)
		return
	}
	s.writeReport(w, format, job.Rows(), snap.FilenameA, snap.FilenameB)
}

func (s *Server) writeReport(w http.ResponseWriter, format string, rows []reconcile.Row, nameA, nameB string) {
	opts := report.Options{SourceA: nameA, SourceB: nameB}
	var err error
	switch format {
	case formatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = report.WriteHTML(w, rows, opts)
	case formatXLSX:
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="rapprochement.xlsx"`)
		err = report.WriteXLSX(w, rows, opts)
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		err = report.WriteMarkdown(w, rows, opts)
	}
	if err != nil {
		s.log.Error("report write failed", "format", format, "error", err)
	}
}

// readCompareRequest parses the multipart upload. On error it returns the
// HTTP status to answer with.
func (s *Server) readCompareRequest(w http.ResponseWriter, r *http.Request) (compareRequest, int, error) {
	// Two files plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return compareRequest{}, http.StatusRequestEntityTooLarge, fmt.Errorf("request exceeds max size (%d bytes)", tooLarge.Limit)
		}
		return compareRequest{}, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	var req compareRequest
	var err error
	var status int
	if req.a, status, err = s.readUpload(r, "a", "silae"); err != nil {
		return compareRequest{}, status, err
	}
	if req.b, status, err = s.readUpload(r, "b", "wagyz"); err != nil {
		return compareRequest{}, status, err
	}

	modeName := r.FormValue("mode")
	if modeName == "" {
		modeName = s.cfg.DefaultMode
	}
	if req.mode, err = pages.ParseMode(modeName); err != nil {
		return compareRequest{}, http.StatusBadRequest, err
	}

	req.format = strings.ToLower(r.FormValue("format"))
	switch req.format {
	case "":
		req.format = formatJSON
	case formatJSON, formatMarkdown, formatHTML, formatXLSX:
	default:
		return compareRequest{}, http.StatusBadRequest, fmt.Errorf("format must be json, markdown, html or xlsx, got %q", req.format)
	}
	req.debug = r.FormValue("debug") == "true"
	return req, 0, nil
}

// readUpload reads the first of the named file fields present.
func (s *Server) readUpload(r *http.Request, fields ...string) (pipeline.Upload, int, error) {
	var (
		file   multipart.File
		header *multipart.FileHeader
		err    error
	)
	for _, field := range fields {
		file, header, err = r.FormFile(field)
		if err == nil {
			break
		}
	}
	if err != nil {
		return pipeline.Upload{}, http.StatusBadRequest, fmt.Errorf("file %q is required", fields[0])
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Upload{}, http.StatusInternalServerError, fmt.Errorf("failed to read %s", filename)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return pipeline.Upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("%s exceeds max size (%d bytes)", filename, s.cfg.MaxUploadBytes)
	}
	if _, err := pages.DetectFormat(filename, data); err != nil {
		return pipeline.Upload{}, http.StatusBadRequest, fmt.Errorf("%s: unsupported file type %s", filename, filepath.Ext(filename))
	}
	return pipeline.Upload{Name: filename, Data: data}, 0, nil
}

func compareErrorStatus(err error) int {
	switch {
	case errors.Is(err, pages.ErrUnsupportedFormat), errors.Is(err, pages.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func firstLines(pageTexts []string, n int) string {
	if len(pageTexts) == 0 {
		return ""
	}
	lines := strings.Split(pageTexts[0], "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
