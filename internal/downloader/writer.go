package downloader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// partSuffix marks in-progress downloads. A completed file never carries it,
// so the final path never holds partial bytes.
const partSuffix = ".part"

// ErrLengthMismatch reports that a completed transfer did not produce the
// byte count the provider advertised. The partial file is removed so the
// next attempt restarts from zero.
var ErrLengthMismatch = errors.New("downloaded size does not match expected total")

// ErrTransferInterrupted reports a failure while streaming the body. The
// partial file is removed; a retry restarts from zero.
var ErrTransferInterrupted = errors.New("transfer interrupted")

// PartialSize returns the size of an existing partial download for dst,
// or 0 when none exists. The caller can pass it as a resume offset.
func PartialSize(dst string) int64 {
	info, err := os.Stat(dst + partSuffix)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// RemovePartial deletes any leftover partial file for dst.
func RemovePartial(dst string) {
	_ = os.Remove(dst + partSuffix)
}

// WriteAtomic streams r into dst through a sibling temp file, fsyncs, and
// renames into place so dst is either absent or complete.
//
// offset > 0 appends to an existing partial file whose size must equal
// offset; offset == 0 truncates and writes from the start. expectedTotal,
// when >= 0, is validated against the final size: a mismatch removes the
// temp file and returns ErrLengthMismatch.
//
// Every failure removes the partial file. Resumption only applies to a
// partial left behind by an earlier process, found via PartialSize before
// the transfer starts.
func WriteAtomic(dst string, r io.Reader, offset, expectedTotal int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmp := dst + partSuffix

	var (
		f   *os.File
		err error
	)
	if offset > 0 {
		info, serr := os.Stat(tmp)
		if serr != nil || info.Size() != offset {
			RemovePartial(dst)
			return 0, fmt.Errorf("partial file for %s no longer matches resume offset %d", filepath.Base(dst), offset)
		}
		f, err = os.OpenFile(tmp, os.O_WRONLY|os.O_APPEND, 0o644)
	} else {
		f, err = os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open temp file: %w", err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		RemovePartial(dst)
		return written, fmt.Errorf("%w after %d bytes: %w", ErrTransferInterrupted, offset+written, err)
	}

	total := offset + written
	if expectedTotal >= 0 && total != expectedTotal {
		f.Close()
		RemovePartial(dst)
		return written, fmt.Errorf("%w: got %d bytes, expected %d", ErrLengthMismatch, total, expectedTotal)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		RemovePartial(dst)
		return written, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		RemovePartial(dst)
		return written, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		RemovePartial(dst)
		return written, fmt.Errorf("failed to move file into place: %w", err)
	}
	return written, nil
}

// Exists reports whether a completed file is already present at dst.
func Exists(dst string) bool {
	info, err := os.Stat(dst)
	return err == nil && !info.IsDir()
}
