package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/entropylabs/ingest/internal/logging"
	"github.com/entropylabs/ingest/internal/pipeline"
	"github.com/entropylabs/ingest/internal/schema"
	"github.com/entropylabs/ingest/internal/scoring"
	"github.com/entropylabs/ingest/internal/store"
)

// handleUpload ingests a multipart transaction file. The upload is spooled
// to a temp file whose name keeps the original filename as a prefix, so
// format detection still sees the extension, and the run executes
// synchronously inside the request.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	opts, err := parseRunOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := s.spool(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	log := logging.FromContext(r.Context())
	log.Info("upload accepted", "file", header.Filename, "size", header.Size)

	res, err := s.pipe.Run(r.Context(), path, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, res)
}

// parseRunOptions reads the optional maxRows, batchSize, and mode form
// fields.
func parseRunOptions(r *http.Request) (pipeline.Options, error) {
	var opts pipeline.Options
	if v := r.FormValue("maxRows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("invalid maxRows %q", v)
		}
		opts.MaxRows = n
	}
	if v := r.FormValue("batchSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("invalid batchSize %q", v)
		}
		opts.BatchSize = n
	}
	opts.Mode = schema.Mode(r.FormValue("mode"))
	if _, err := schema.ForMode(opts.Mode); err != nil {
		return opts, err
	}
	return opts, nil
}

// spool copies the upload into the configured temp directory. The pipeline
// owns the file from here on and removes it when its run finishes.
func (s *Server) spool(file io.Reader, name string) (string, error) {
	tmp, err := os.CreateTemp(s.cfg.Ingest.TempDir, filepath.Base(name)+"-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// handleGetRun returns one dataset run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := s.repo.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, run)
}

// handleScore loads a stored transaction's features and asks the risk
// scorer for a verdict.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "transactionID")

	feats, err := s.repo.GetFeatures(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transaction")
		return
	}

	verdict := s.scorer.Score(r.Context(), scoring.Request{
		TransactionID: key,
		Features:      feats,
	})
	writeJSON(w, verdict)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
