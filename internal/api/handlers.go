package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/fetcher"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/pipeline"
	"github.com/urbanhydro/abimo/internal/store"
)

// BalanceRequest is the body of POST /v1/balance.
type BalanceRequest struct {
	Records []model.InputRecord `json:"records"`
}

// RunRequest is the JSON body of POST /v1/runs.
type RunRequest struct {
	Source string `json:"source"`
	Output string `json:"output,omitempty"`
	Format string `json:"format,omitempty"`
	Sheet  string `json:"sheet,omitempty"`
	Export *bool  `json:"export,omitempty"`
}

var errNoStore = errors.New("run tracking is disabled")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) maxBytes() int64 {
	return s.cfg.MaxUploadMB << 20
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBytes())
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
		return
	}

	ev, err := s.calc.Evaluate(r.Context(), req.Records)
	if err != nil {
		// Partial results up to the failing record.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"result": ev,
		})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	req, err := s.parseRunRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	run, err := s.calc.Start(r.Context(), req)
	if err != nil {
		s.log.Error("api: start run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.calc.Execute(s.base, run, req); err != nil {
			s.log.Warn("api: run failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, run)
}

// parseRunRequest accepts a JSON RunRequest or a multipart upload with the
// table in the "file" part.
func (s *Server) parseRunRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes())
	req := pipeline.Request{Export: s.cfg.Export, Input: s.cfg.Input}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		src, err := s.saveUpload(r)
		if err != nil {
			return req, err
		}
		req.Source = src
		req.Input.Format = r.FormValue("format")
		req.Input.Sheet = r.FormValue("sheet")
		return req, nil
	}

	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return req, eris.Wrap(err, "invalid request body")
	}
	if body.Source == "" {
		return req, eris.New("source is required")
	}

	if fetcher.IsRemote(body.Source) {
		req.Source = body.Source
	} else {
		src, err := s.resolve(body.Source)
		if err != nil {
			return req, err
		}
		req.Source = src
	}
	if body.Output != "" {
		out, err := s.resolve(body.Output)
		if err != nil {
			return req, err
		}
		req.Output = out
	} else if fetcher.IsRemote(body.Source) {
		req.Output = filepath.Join(s.cfg.WorkDir, uuid.NewString()+"_out.dbf")
	}
	if body.Format != "" {
		req.Input.Format = body.Format
	}
	if body.Sheet != "" {
		req.Input.Sheet = body.Sheet
	}
	if body.Export != nil {
		req.Export = *body.Export
	}
	return req, nil
}

// resolve maps a client path into the work directory.
func (s *Server) resolve(p string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", eris.Errorf("path %q is outside the work directory", p)
	}
	return filepath.Join(s.cfg.WorkDir, clean), nil
}

func (s *Server) saveUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", eris.Wrap(err, "read upload")
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(filepath.Clean(header.Filename))
	if name == "." || name == string(filepath.Separator) {
		return "", eris.New("upload has no file name")
	}

	dir := filepath.Join(s.cfg.WorkDir, "uploads", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "create upload dir")
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "create upload file")
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close() //nolint:errcheck
		return "", eris.Wrap(err, "write upload file")
	}
	return path, eris.Wrap(out.Close(), "close upload file")
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func parseFilter(r *http.Request) (store.RunFilter, error) {
	q := r.URL.Query()
	f := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Source: q.Get("source"),
	}

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, eris.Errorf("invalid %s %q", name, v)
		}
		*dst = n
	}

	if v := q.Get("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, eris.Errorf("invalid created_after %q", v)
		}
		f.CreatedAfter = t
	}
	return f, nil
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, run)
	}
}
