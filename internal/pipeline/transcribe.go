package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"convrt/internal/history"
	"convrt/internal/logging"
	"convrt/internal/process"
	"convrt/internal/services"
	"convrt/internal/transcription"
)

// TranscribeRequest transcribes the speech in a media file.
type TranscribeRequest struct {
	InputPath string `json:"inputPath"`
	// Model defaults to models.default.
	Model string `json:"model,omitempty"`
	// Language defaults to transcription.language; "auto" requests detection.
	Language string `json:"language,omitempty"`
	// Translate requests English output; transcription.translate forces it on.
	Translate bool `json:"translate,omitempty"`
}

// Transcript is the result of a transcription run.
type Transcript struct {
	RunID string `json:"runId"`
	transcription.Result
}

// Transcribe extracts mono 16 kHz float audio from req.InputPath with ffmpeg
// and transcribes it. The per-run work directory is removed afterwards unless
// pipeline.keep_work_dirs is set.
func (c *Coordinator) Transcribe(ctx context.Context, req TranscribeRequest) (Transcript, error) {
	r := c.begin(ctx, WorkflowTranscribe, req.InputPath)
	out, err := c.transcribe(r, req, true)
	r.finish(err, history.Completion{DetectedLanguage: out.DetectedLanguage, Transcript: out.Text})
	return out, err
}

// TranscribeAudio transcribes a WAV file that is already mono, 16 kHz, and
// 32-bit float, skipping extraction.
func (c *Coordinator) TranscribeAudio(ctx context.Context, req TranscribeRequest) (Transcript, error) {
	r := c.begin(ctx, WorkflowTranscribe, req.InputPath)
	out, err := c.transcribe(r, req, false)
	r.finish(err, history.Completion{DetectedLanguage: out.DetectedLanguage, Transcript: out.Text})
	return out, err
}

func (c *Coordinator) transcribe(r *run, req TranscribeRequest, extract bool) (Transcript, error) {
	const op = "pipeline.transcribe"
	out := Transcript{RunID: r.id}
	if err := requireInput(op, req.InputPath); err != nil {
		return out, err
	}
	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		modelName = c.cfg.Models.Default
	}

	modelPath, err := c.models.Resolve(r.stage(r.ctx, "model"), modelName)
	if err != nil {
		return out, err
	}

	ctx, cancel := withTimeout(r.ctx, c.cfg.TranscribeTimeout())
	defer cancel()

	audioPath := req.InputPath
	if extract {
		workDir := filepath.Join(c.cfg.Paths.WorkDir, r.id)
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return out, services.Wrap(services.ErrFilesystem, op, "create work directory", err)
		}
		defer c.cleanupWorkDir(r, workDir)

		audioPath = filepath.Join(workDir, "audio.wav")
		inv, err := process.ExtractAudio(req.InputPath, audioPath)
		if err != nil {
			return out, err
		}
		if _, err := r.exec(r.stage(ctx, "extract"), inv); err != nil {
			return out, err
		}
		if err := requireOutput(op, audioPath); err != nil {
			return out, err
		}
	}

	r.stage(ctx, "decode")
	audio, err := c.decoder.Decode(audioPath)
	if err != nil {
		return out, err
	}
	if err := audio.Validate(); err != nil {
		return out, err
	}

	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = c.cfg.Transcription.Language
	}
	result, err := c.transcriber.Transcribe(r.stage(ctx, "inference"), modelPath, transcription.Request{
		Audio:     audio,
		Language:  lang,
		Translate: req.Translate || c.cfg.Transcription.Translate,
	})
	if err != nil {
		return out, err
	}
	out.Result = result
	return out, nil
}

func (c *Coordinator) cleanupWorkDir(r *run, dir string) {
	if c.cfg.Pipeline.KeepWorkDirs {
		r.logger.Debug("keeping work directory", logging.String("path", dir))
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		r.logger.Warn("work directory cleanup failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldEventType, "work_dir_cleanup_failed"),
			logging.String(logging.FieldImpact, "intermediate audio left on disk"),
		)
	}
}
