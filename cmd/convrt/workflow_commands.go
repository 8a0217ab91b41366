package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"convrt/internal/pipeline"
	"convrt/internal/process"
	"convrt/internal/subtitles"
)

func newAcquireCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "acquire <url>",
		Short: "Download a video from a URL as MP4",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			path, err := coordinator.Acquire(cmd.Context(), pipeline.AcquireRequest{URL: args[0], OutputDir: outputDir})
			return ctx.finish(cmd, pipeline.ReportPath(path, err), err)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the downloaded video (default paths.output_dir)")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		model     string
		language  string
		translate bool
		wavInput  bool
		fromURL   bool
		srtPath   string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <file|url>",
		Short: "Transcribe the speech in a media file",
		Long: "Extracts 16 kHz mono audio with ffmpeg, downloads the acoustic model on first use,\n" +
			"and prints the transcript. --wav skips extraction for audio already in the engine's format.\n" +
			"--url fetches the video with yt-dlp first. --srt also writes timed SubRip cues.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			req := pipeline.TranscribeRequest{InputPath: args[0], Model: model, Language: language, Translate: translate}
			var transcript pipeline.Transcript
			switch {
			case fromURL:
				var fetched pipeline.FetchedTranscript
				fetched, err = coordinator.FetchAndTranscribe(cmd.Context(), pipeline.FetchTranscribeRequest{
					URL:       args[0],
					Model:     model,
					Language:  language,
					Translate: translate,
				})
				transcript = fetched.Transcript
			case wavInput:
				transcript, err = coordinator.TranscribeAudio(cmd.Context(), req)
			default:
				transcript, err = coordinator.Transcribe(cmd.Context(), req)
			}
			outcome := pipeline.ReportTranscript(transcript, err)
			if err == nil && srtPath != "" {
				if err = subtitles.WriteSRT(srtPath, transcript.Segments); err != nil {
					outcome = pipeline.Report(err)
				} else {
					outcome.Output = srtPath
					if !ctx.jsonOutput() {
						fmt.Fprintf(cmd.ErrOrStderr(), "Subtitles written to %s\n", srtPath)
					}
				}
			}
			return ctx.finish(cmd, outcome, err)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Acoustic model name (default models.default)")
	cmd.Flags().StringVarP(&language, "language", "l", "", `Spoken language code or "auto"`)
	cmd.Flags().BoolVar(&translate, "translate", false, "Translate the transcript to English")
	cmd.Flags().BoolVar(&wavInput, "wav", false, "Input is already 16 kHz mono float WAV")
	cmd.Flags().BoolVar(&fromURL, "url", false, "Treat the argument as a URL and fetch it first")
	cmd.Flags().StringVar(&srtPath, "srt", "", "Also write subtitles to this .srt file")
	cmd.MarkFlagsMutuallyExclusive("wav", "url")
	return cmd
}

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var (
		start     time.Duration
		duration  time.Duration
		format    string
		crop      string
		quality   string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "trim <file>",
		Short: "Cut and re-encode a clip from a local video",
		Example: "  convrt trim talk.mp4 --start 1m30s --duration 20s --crop vertical\n" +
			"  convrt trim talk.mp4 --duration 5s --format gif",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			path, err := coordinator.Trim(cmd.Context(), pipeline.TrimRequest{
				InputPath: args[0],
				Start:     start,
				Duration:  duration,
				Format:    process.Format(format),
				Crop:      process.Crop(crop),
				Quality:   process.Quality(quality),
				OutputDir: outputDir,
			})
			return ctx.finish(cmd, pipeline.ReportPath(path, err), err)
		},
	}
	cmd.Flags().DurationVar(&start, "start", 0, "Clip start offset")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Clip length (required)")
	cmd.Flags().StringVarP(&format, "format", "f", string(process.FormatMP4), fmt.Sprintf("Output format (%s, %s, %s, %s, %s)",
		process.FormatMP4, process.FormatWebM, process.FormatMOV, process.FormatMKV, process.FormatGIF))
	cmd.Flags().StringVar(&crop, "crop", string(process.CropNone), "Crop preset (none, vertical, square)")
	cmd.Flags().StringVarP(&quality, "quality", "q", string(process.QualityMedium), "Quality preset (low, medium, high)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the clip (default paths.output_dir)")
	return cmd
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "encode <file>",
		Short: "Encode a video to AV1 for archival",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			path, err := coordinator.Encode(cmd.Context(), pipeline.EncodeRequest{InputPath: args[0], OutputDir: outputDir})
			return ctx.finish(cmd, pipeline.ReportPath(path, err), err)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the encode (default paths.output_dir)")
	return cmd
}
