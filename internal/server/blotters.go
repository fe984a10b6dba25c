package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
	"github.com/joseph-ayodele/blotter-tracker/internal/ingest"
	"github.com/joseph-ayodele/blotter-tracker/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ingestResponse struct {
	Batch            *entity.Batch `json:"batch"`
	IncidentCount    int           `json:"incident_count"`
	Duplicate        bool          `json:"duplicate"`
	Post             *entity.Post  `json:"post,omitempty"`
	ExtractionMethod string        `json:"extraction_method,omitempty"`
	OCRFallback      string        `json:"ocr_fallback,omitempty"`
}

func newIngestResponse(res *pipeline.Result) ingestResponse {
	return ingestResponse{
		Batch:            res.Batch,
		IncidentCount:    res.Batch.IncidentCount,
		Duplicate:        res.Duplicate,
		Post:             res.Post,
		ExtractionMethod: string(res.Extraction.Method),
		OCRFallback:      string(res.Extraction.Fallback),
	}
}

func ingestStatus(res *pipeline.Result) int {
	if res.Duplicate {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (a *API) handleIncidents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	batch, err := a.batches.GetBatch(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	records, err := a.batches.ListRecords(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch": batch, "incidents": nonNil(records)})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	data, err := a.exporter.ExportBatchXLSX(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="blotter-%s.xlsx"`, id))
	_, _ = w.Write(data)
}

// handleUpload accepts a multipart document in field "file" with an optional
// "county" override, stores it under the upload directory and processes it.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.cfg.MaxUploadBytes); err != nil {
		a.writeError(w, r, common.NewAppError("BAD_UPLOAD", "malformed or oversized upload", common.ErrInvalidInput))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.writeError(w, r, common.NewAppError("BAD_UPLOAD", "file is required", common.ErrInvalidInput))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	county := strings.TrimSpace(r.FormValue("county"))
	ext := constants.NormalizeExt(filepath.Ext(name))
	v := common.NewValidator().
		Field("filename", name, common.Required, common.MaxLength(255)).
		Field("county", county, common.MaxLength(64))
	if !ingest.AllowedExt(ext) {
		v.Field("file", ext, func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "unsupported file type"}
		})
	}
	if err := v.Error(); err != nil {
		a.writeError(w, r, err)
		return
	}

	path, err := a.saveUpload(name, file)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.processor.ProcessFile(r.Context(), path, county)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, ingestStatus(res), newIngestResponse(res))
}

func (a *API) saveUpload(name string, src io.Reader) (string, error) {
	root := a.cfg.UploadDir
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dir, err := os.MkdirTemp(root, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

type ingestTextRequest struct {
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	SenderEmail *string `json:"sender_email"`
	County      string  `json:"county"`
	Filename    string  `json:"filename"`
}

func (a *API) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes))
	if err := dec.Decode(&req); err != nil {
		a.writeError(w, r, common.NewAppError("BAD_JSON", "invalid request body", common.ErrInvalidInput))
		return
	}
	v := common.NewValidator().
		Field("text", req.Text, common.Required).
		Field("source", req.Source, common.MaxLength(255)).
		Field("county", req.County, common.MaxLength(64))
	if err := v.Error(); err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.processor.ProcessText(r.Context(), pipeline.TextDocument{
		Text:        req.Text,
		Filename:    req.Filename,
		Source:      req.Source,
		SenderEmail: req.SenderEmail,
		County:      req.County,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, ingestStatus(res), newIngestResponse(res))
}
