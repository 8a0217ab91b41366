// Package transcription runs speech-to-text inference on decoded audio.
//
// The Adapter owns one model and one inference state per call and releases
// both on every exit path. Engines plug in through the Loader, Model, and
// State interfaces; the whisper.cpp binding is compiled in with the "whisper"
// build tag, otherwise a stub loader reports that inference is unavailable.
package transcription
