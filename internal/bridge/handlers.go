package bridge

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"convrt/internal/history"
	"convrt/internal/modelcache"
	"convrt/internal/pipeline"
	"convrt/internal/process"
	"convrt/internal/services"
	"convrt/internal/subtitles"
)

const maxRequestBytes = 64 << 10

// ModelListResponse is the GET /api/models payload.
type ModelListResponse struct {
	Models []modelcache.Descriptor `json:"models"`
}

// ModelEnsureResponse is the POST /api/models/{name} payload.
type ModelEnsureResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// HistoryResponse is the GET /api/history payload.
type HistoryResponse struct {
	Runs []history.Run `json:"runs"`
}

// AcquireRequest is the POST /api/acquire body.
type AcquireRequest struct {
	URL       string `json:"url"`
	OutputDir string `json:"outputDir,omitempty"`
}

// TranscribeRequest is the POST /api/transcribe body.
type TranscribeRequest struct {
	InputPath string `json:"inputPath"`
	Model     string `json:"model,omitempty"`
	Language  string `json:"language,omitempty"`
	Translate bool   `json:"translate,omitempty"`
	// SRT adds SubRip cues for the transcript segments to the response.
	SRT       bool   `json:"srt,omitempty"`
}

// TrimRequest is the POST /api/trim body. Times are in seconds.
type TrimRequest struct {
	InputPath       string  `json:"inputPath"`
	StartSeconds    float64 `json:"startSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
	Format          string  `json:"format,omitempty"`
	Crop            string  `json:"crop,omitempty"`
	Quality         string  `json:"quality,omitempty"`
	OutputDir       string  `json:"outputDir,omitempty"`
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	models, err := s.models.List()
	if err != nil {
		s.writeOutcome(w, pipeline.Report(err))
		return
	}
	s.writeJSON(w, http.StatusOK, ModelListResponse{Models: models})
}

func (s *Server) handleModelEnsure(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, err := s.models.Resolve(r.Context(), name)
	if err != nil {
		s.writeOutcome(w, pipeline.Report(err))
		return
	}
	s.writeJSON(w, http.StatusOK, ModelEnsureResponse{Name: name, Path: path})
}

func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req AcquireRequest
	if !s.decode(w, r, &req) {
		return
	}
	path, err := s.workflows.Acquire(r.Context(), pipeline.AcquireRequest{URL: req.URL, OutputDir: req.OutputDir})
	s.writeOutcome(w, pipeline.ReportPath(path, err))
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req TranscribeRequest
	if !s.decode(w, r, &req) {
		return
	}
	transcript, err := s.workflows.Transcribe(r.Context(), pipeline.TranscribeRequest{
		InputPath: req.InputPath,
		Model:     req.Model,
		Language:  req.Language,
		Translate: req.Translate,
	})
	outcome := pipeline.ReportTranscript(transcript, err)
	if err == nil && req.SRT {
		outcome.SRT = subtitles.FormatSRT(transcript.Segments)
	}
	s.writeOutcome(w, outcome)
}

func (s *Server) handleTrim(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if !s.decode(w, r, &req) {
		return
	}
	path, err := s.workflows.Trim(r.Context(), pipeline.TrimRequest{
		InputPath: req.InputPath,
		Start:     seconds(req.StartSeconds),
		Duration:  seconds(req.DurationSeconds),
		Format:    process.Format(req.Format),
		Crop:      process.Crop(req.Crop),
		Quality:   process.Quality(req.Quality),
		OutputDir: req.OutputDir,
	})
	s.writeOutcome(w, pipeline.ReportPath(path, err))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, HistoryResponse{Runs: []history.Run{}})
		return
	}
	query := r.URL.Query()
	filter := history.Filter{
		Workflow: strings.TrimSpace(query.Get("workflow")),
		Status:   history.Status(strings.TrimSpace(query.Get("status"))),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	runs, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Runs: runs})
}

// decode reads a JSON body into dst. Bodies not labelled application/json get
// 415 and malformed input gets 400.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		s.writeJSON(w, http.StatusUnsupportedMediaType, pipeline.Outcome{
			Error:     "request body must be application/json",
			ErrorKind: services.KindValidation.String(),
			Hint:      services.Hint(services.KindValidation),
		})
		return false
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, pipeline.Outcome{
			Error:     "invalid request body: " + err.Error(),
			ErrorKind: services.KindValidation.String(),
			Hint:      services.Hint(services.KindValidation),
		})
		return false
	}
	return true
}

func (s *Server) writeOutcome(w http.ResponseWriter, outcome pipeline.Outcome) {
	s.writeJSON(w, statusFor(outcome), outcome)
}

// statusFor maps a failure kind onto an HTTP status.
func statusFor(outcome pipeline.Outcome) int {
	if outcome.Error == "" {
		return http.StatusOK
	}
	switch services.Kind(outcome.ErrorKind) {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindFormatValidation:
		return http.StatusUnprocessableEntity
	case services.KindNetwork:
		return http.StatusBadGateway
	case services.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}
