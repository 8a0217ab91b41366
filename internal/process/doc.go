// Package process runs the external media tools (yt-dlp, ffmpeg, ffprobe) as
// isolated child processes.
//
// Invocations are built by typed constructors that validate their inputs and
// never pass through a shell. The Orchestrator resolves logical tool names to
// executables from configuration, captures stdout and stderr, and maps
// failures onto the services error taxonomy. Each child runs in its own
// process group so cancellation or timeout terminates the tool together with
// anything it spawned.
package process
