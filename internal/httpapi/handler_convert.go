package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/config"
	"caneco-bridge/internal/convert"
	"caneco-bridge/internal/record"
	"caneco-bridge/internal/runs"
)

var allowedExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// ConvertHandler accepts a multipart upload under the "file" field and
// returns the generated exchange-format document.
func ConvertHandler(cfg *config.Config, cat *catalog.Catalog, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.Upload.MaxBytes)

		if err := r.ParseMultipartForm(cfg.Upload.MaxBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedExtensions[ext] {
			writeError(w, http.StatusUnprocessableEntity, "unsupported file type "+ext)
			return
		}

		start := time.Now()

		records, err := record.Normalize(file, header.Filename)
		if err != nil {
			slog.Error("failed to normalize upload", "file", header.Filename, "error", err)
			recordRun(r, pool, header.Filename, nil, start, runs.StatusFailed)
			writeError(w, http.StatusUnprocessableEntity, "cannot parse input file")
			return
		}

		res, err := convert.Run(cat, records, convert.Meta{
			ProjectName: cfg.Project.Name,
			CompanyName: cfg.Project.Company,
			StartDate:   cfg.Project.StartDate,
		})
		if err != nil {
			slog.Error("conversion failed", "file", header.Filename, "error", err)
			recordRun(r, pool, header.Filename, nil, start, runs.StatusFailed)
			writeError(w, http.StatusUnprocessableEntity, "conversion failed")
			return
		}

		recordRun(r, pool, header.Filename, &res.Summary, start, runs.StatusOK)

		base := strings.TrimSuffix(filepath.Base(header.Filename), ext)
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+base+`.xml"`)
		w.Header().Set("X-Records-Total", strconv.Itoa(res.Summary.Total))
		w.Header().Set("X-Records-Matched", strconv.Itoa(res.Summary.Matched))
		w.Header().Set("X-Records-Skipped", strconv.Itoa(res.Summary.Skipped))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.XML)
	}
}

func recordRun(r *http.Request, pool *pgxpool.Pool, source string, s *convert.Summary, start time.Time, status string) {
	if pool == nil {
		return
	}

	run := runs.Run{
		Source:     filepath.Base(source),
		Status:     status,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if s != nil {
		run.Total = s.Total
		run.Matched = s.Matched
		run.Skipped = s.Skipped
		run.Defaulted = s.Defaulted
	}

	if err := runs.Insert(r.Context(), pool, &run); err != nil {
		// History is best effort; the conversion result still goes out.
		slog.Error("failed to record run", "source", source, "error", err)
	}
}
