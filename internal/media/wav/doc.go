// Package wav decodes RIFF/WAVE files into sample buffers for transcription.
//
// Only one layout is accepted for inference: a single channel at 16 kHz with
// 32-bit IEEE float samples. Anything else fails with a format validation
// error; the decoder never resamples or mixes channels.
package wav
