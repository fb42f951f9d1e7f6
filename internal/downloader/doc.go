// Package downloader persists Zoom cloud recording assets to the local
// filesystem.
//
// The orchestrator drains a listing through a fixed-size worker pool and
// records every per-file outcome in a Manifest. Destination paths are a pure
// function of recording metadata, so repeated runs are idempotent: existing
// files are skipped unless overwrite is requested, and a failed run can be
// re-invoked safely.
//
// Writes are atomic. Bytes stream into a sibling ".part" file which is
// fsynced and renamed into place only on full success, so the final path
// never holds a truncated asset. A ".part" left behind by an interrupted
// transfer becomes a resume offset on the next attempt when the provider
// honours range requests.
//
// Transfers retry with exponential backoff, except permission errors, which
// are terminal for the file, and credential errors, which abort the whole
// run.
package downloader
