// Command convrt fetches, trims, encodes, and transcribes media from the
// command line. Each subcommand runs one pipeline workflow in-process;
// `convrt serve` exposes the same workflows over the local bridge.
package main
