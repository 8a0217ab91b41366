package pipeline

import "context"

// FetchTranscribeRequest downloads a video and transcribes it.
type FetchTranscribeRequest struct {
	URL       string `json:"url"`
	OutputDir string `json:"outputDir,omitempty"`
	Model     string `json:"model,omitempty"`
	Language  string `json:"language,omitempty"`
	Translate bool   `json:"translate,omitempty"`
}

// FetchedTranscript pairs the downloaded video with its transcript.
type FetchedTranscript struct {
	VideoPath string `json:"videoPath"`
	Transcript
}

// FetchAndTranscribe runs Acquire then Transcribe on the downloaded file.
// The two steps are recorded as separate runs.
func (c *Coordinator) FetchAndTranscribe(ctx context.Context, req FetchTranscribeRequest) (FetchedTranscript, error) {
	path, err := c.Acquire(ctx, AcquireRequest{URL: req.URL, OutputDir: req.OutputDir})
	if err != nil {
		return FetchedTranscript{}, err
	}
	transcript, err := c.Transcribe(ctx, TranscribeRequest{
		InputPath: path,
		Model:     req.Model,
		Language:  req.Language,
		Translate: req.Translate,
	})
	return FetchedTranscript{VideoPath: path, Transcript: transcript}, err
}
