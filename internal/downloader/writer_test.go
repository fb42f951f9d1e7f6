package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingReader yields its payload and then fails, simulating a connection
// drop mid-transfer.
type failingReader struct {
	payload string
	err     error
	read    bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		n := copy(p, r.payload)
		return n, nil
	}
	return 0, r.err
}

func TestWriteAtomic_FullTransfer(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "dir", "video.mp4")

	written, err := WriteAtomic(dst, strings.NewReader("payload"), 0, int64(len("payload")))
	require.NoError(t, err)
	assert.Equal(t, int64(7), written)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// No temp file left behind
	_, err = os.Stat(dst + partSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteAtomic_UnknownLength(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "audio.m4a")

	written, err := WriteAtomic(dst, strings.NewReader("abc"), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), written)
	assert.True(t, Exists(dst))
}

func TestWriteAtomic_MidStreamFailureRemovesPartial(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "video.mp4")
	r := &failingReader{payload: "first", err: errors.New("connection reset")}

	_, err := WriteAtomic(dst, r, 0, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransferInterrupted))

	// Final path untouched, no temp artifact left behind
	assert.False(t, Exists(dst))
	assert.Equal(t, int64(0), PartialSize(dst))
}

func TestWriteAtomic_Resume(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "video.mp4")

	// A partial file left behind by an earlier process
	require.NoError(t, os.WriteFile(dst+partSuffix, []byte("first"), 0o644))
	offset := PartialSize(dst)
	require.Equal(t, int64(5), offset)

	// Resume appends the remainder and validates the total
	written, err := WriteAtomic(dst, strings.NewReader("second"), offset, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(6), written)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "firstsecond", string(data))
	assert.Equal(t, int64(0), PartialSize(dst))
}

func TestWriteAtomic_LengthMismatchRemovesPartial(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "video.mp4")

	_, err := WriteAtomic(dst, strings.NewReader("short"), 0, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	// Partial removed so the next attempt restarts from zero
	assert.Equal(t, int64(0), PartialSize(dst))
	assert.False(t, Exists(dst))
}

func TestWriteAtomic_StaleOffsetRejected(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "video.mp4")

	// No partial file exists, so resuming at offset 5 must fail and clear
	// the way for a fresh attempt.
	_, err := WriteAtomic(dst, strings.NewReader("data"), 5, -1)
	require.Error(t, err)
	assert.Equal(t, int64(0), PartialSize(dst))
}

func TestWriteAtomic_OverwritesExisting(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	_, err := WriteAtomic(dst, strings.NewReader("new content"), 0, -1)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
}

func TestPartialSize_NoFile(t *testing.T) {
	assert.Equal(t, int64(0), PartialSize(filepath.Join(t.TempDir(), "absent.mp4")))
}
