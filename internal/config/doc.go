// Package config loads, normalizes, and validates convrt configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CONVRT_DATA_DIR. The Config value is passed explicitly into every component
// constructor; nothing in the repository looks up storage locations through a
// global application handle.
package config
