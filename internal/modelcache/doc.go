// Package modelcache maps whisper model names to local files and downloads
// missing models on first use.
//
// Models live under <data_dir>/whisper_models as ggml-<name>.bin. Resolve
// returns immediately when the file is present; otherwise it downloads into a
// temporary file in the same directory, syncs it, and renames it into place so
// readers never observe a partial model. Concurrent requests for the same name
// are serialized by an in-process keyed lock and a cross-process lock file, and
// every waiter re-checks the cache once it holds the lock.
package modelcache
