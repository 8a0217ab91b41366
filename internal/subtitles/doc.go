// Package subtitles renders transcription segments as SubRip (.srt) cues.
package subtitles
