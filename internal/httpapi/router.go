// Package httpapi exposes the organizer over HTTP: a multipart upload
// returns the category ZIP, and the run history can be listed or exported.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fjacquet/fiscal-organizer/internal/container"
	"fjacquet/fiscal-organizer/internal/fiscalerror"
	"fjacquet/fiscal-organizer/internal/history"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/report"
	"fjacquet/fiscal-organizer/internal/validation"
)

// Multipart field names of POST /v1/organize.
const (
	FieldCompany = "company"
	FieldCNPJ    = "cnpj"
	FieldFiles   = "files"
)

// Response headers describing an organize run.
const (
	HeaderRunID       = "X-Run-ID"
	HeaderRunStatus   = "X-Run-Status"
	HeaderUnreadable  = "X-Unreadable-Files"
	HeaderConflicting = "X-Conflicting-Files"
)

const (
	uploadSource    = "upload"
	maxMemoryUpload = 32 << 20
	defaultRunLimit = 50
)

// Router serves the HTTP API on top of a wired container.
type Router struct {
	container *container.Container
	logger    logging.Logger
	maxUpload int64
}

// NewRouter creates a Router.
func NewRouter(c *container.Container) *Router {
	return &Router{
		container: c,
		logger:    c.GetLogger().WithField(logging.FieldComponent, "http"),
		maxUpload: c.GetConfig().Server.MaxUploadBytes(),
	}
}

// Handler returns the instrumented mux.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.container.GetMetrics().Handler())
	mux.HandleFunc("/v1/organize", rt.organize)
	mux.HandleFunc("/v1/runs", rt.listRuns)
	mux.HandleFunc("/v1/runs/", rt.getRun)
	return rt.container.GetMetrics().Middleware(rt.loggingMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) organize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUpload)
	if err := r.ParseMultipartForm(maxMemoryUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart form is required")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docs, err := readUploads(r.MultipartForm.File[FieldFiles])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	company := models.CompanyContext{
		Name:  r.FormValue(FieldCompany),
		TaxID: r.FormValue(FieldCNPJ),
	}
	result, err := rt.container.NewOrganizer().Organize(r.Context(), docs, company)
	if err != nil {
		if fiscalerror.IsPrecondition(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rt.logger.WithError(err).Error("Organize request failed")
		writeError(w, http.StatusInternalServerError, "failed to organize documents")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.ArchiveName}))
	h.Set("Content-Length", strconv.Itoa(len(result.Archive)))
	h.Set(HeaderRunID, result.RunID)
	h.Set(HeaderRunStatus, result.Record.Status)
	for _, name := range result.Unreadable {
		h.Add(HeaderUnreadable, name)
	}
	for _, name := range result.Conflicts {
		h.Add(HeaderConflicting, name)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Archive)
}

func (rt *Router) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := rt.container.GetHistory()
	if store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatJSON
	}
	if err := validation.IsValidReportFormat(format); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := store.List(r.Context(), limit)
	if err != nil {
		rt.logger.WithError(err).Error("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	data, err := rt.container.GetReportGenerator().Generate(runs, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", report.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := rt.container.GetHistory()
	if store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	run, err := store.Get(r.Context(), id)
	switch {
	case errors.Is(err, history.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		rt.logger.WithError(err).Error("Failed to load run", logging.F(logging.FieldRunID, id))
		writeError(w, http.StatusInternalServerError, "failed to load run")
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// readUploads turns multipart files into documents, preserving form order.
func readUploads(files []*multipart.FileHeader) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		docs = append(docs, models.NewDocument(fh.Filename, data).WithSource(uploadSource))
	}
	return docs, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (rt *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		rt.logger.Debug("Request served",
			logging.F("method", r.Method),
			logging.F(logging.FieldPath, r.URL.Path),
			logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	})
}
