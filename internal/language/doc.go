// Package language normalizes language hints and names.
//
// Transcription hints arrive as ISO 639-1 or 639-2 codes, BCP 47 tags, or
// English words; NormalizeHint reduces them to the 2-letter code understood by
// whisper, treating "auto" as a request for detection.
package language
