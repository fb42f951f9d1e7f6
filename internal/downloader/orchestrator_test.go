package downloader

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoomscribe/zoomscribe/internal/zoom"
)

// fakeFetcher scripts DownloadFile responses per call and records the
// requested offsets.
type fakeFetcher struct {
	mu      sync.Mutex
	offsets []int64
	fn      func(call int, f zoom.RecordingFile, offset int64) (*zoom.DownloadStream, error)
}

func (ff *fakeFetcher) DownloadFile(_ context.Context, f zoom.RecordingFile, offset int64) (*zoom.DownloadStream, error) {
	ff.mu.Lock()
	call := len(ff.offsets)
	ff.offsets = append(ff.offsets, offset)
	ff.mu.Unlock()
	return ff.fn(call, f, offset)
}

func (ff *fakeFetcher) calls() []int64 {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	out := make([]int64, len(ff.offsets))
	copy(out, ff.offsets)
	return out
}

func fullStream(content string) *zoom.DownloadStream {
	return &zoom.DownloadStream{
		Body:          io.NopCloser(strings.NewReader(content)),
		ContentLength: int64(len(content)),
	}
}

func testRecording() zoom.Recording {
	return zoom.Recording{
		UUID:      "aZ3+xY9/Qw==",
		MeetingID: 123456789,
		Topic:     "Standup",
		HostEmail: "host@example.com",
		StartTime: time.Date(2026, 8, 5, 9, 30, 15, 0, time.UTC),
		Files: []zoom.RecordingFile{{
			ID:            "file-1",
			FileType:      "MP4",
			FileExtension: "mp4",
			DownloadURL:   "https://example.zoom.us/rec/download/abc",
		}},
	}
}

// newTestOrchestrator builds an orchestrator with no real sleeping and a
// silent logger.
func newTestOrchestrator(t *testing.T, client Fetcher, cfg Config) (*Orchestrator, *int) {
	t.Helper()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	o, err := New(client, cfg)
	require.NoError(t, err)

	sleeps := 0
	o.sleep = func(ctx context.Context, _ time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	o.jitter = func() float64 { return 1.0 }
	return o, &sleeps
}

func TestRun_DownloadsAllFiles(t *testing.T) {
	dir := t.TempDir()
	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return fullStream("recording bytes"), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir})

	rec := testRecording()
	rec.Files = append(rec.Files, zoom.RecordingFile{
		ID: "file-2", FileType: "TRANSCRIPT", FileExtension: "vtt",
		DownloadURL: "https://example.zoom.us/rec/download/def",
	})

	manifest, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)
	require.NoError(t, manifest.Err())

	succeeded, skipped, failed := manifest.Counts()
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 0, failed)

	for _, e := range manifest.Entries() {
		assert.Equal(t, OutcomeSucceeded, e.Outcome)
		assert.Equal(t, int64(len("recording bytes")), e.Bytes)
		data, rerr := os.ReadFile(e.Path)
		require.NoError(t, rerr)
		assert.Equal(t, "recording bytes", string(data))
	}
}

func TestRun_SkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	rec := testRecording()
	dest := BuildFilePath(dir, rec, rec.Files[0])
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0o644))

	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return fullStream("fresh"), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir})

	manifest, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)

	entries := manifest.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeSkipped, entries[0].Outcome)
	assert.Equal(t, ReasonExists, entries[0].Reason)
	assert.Empty(t, ff.calls(), "existing file must not touch the network")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data))
}

func TestRun_SecondRunSkipsDownloadedFiles(t *testing.T) {
	dir := t.TempDir()
	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return fullStream("recording bytes"), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir})

	rec := testRecording()
	first, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)
	succeeded, skipped, _ := first.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, skipped)

	dest := BuildFilePath(dir, rec, rec.Files[0])
	before, err := os.ReadFile(dest)
	require.NoError(t, err)

	second, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)
	require.NoError(t, second.Err())
	succeeded, skipped, _ = second.Counts()
	assert.Equal(t, 0, succeeded)
	assert.Equal(t, 1, skipped)

	// One network transfer total across both runs, bytes unchanged.
	assert.Len(t, ff.calls(), 1)
	after, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_OverwriteRedownloads(t *testing.T) {
	dir := t.TempDir()
	rec := testRecording()
	dest := BuildFilePath(dir, rec, rec.Files[0])
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o644))

	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return fullStream("fresh"), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir, Overwrite: true})

	manifest, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)
	require.NoError(t, manifest.Err())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	recA := testRecording()
	dest := BuildFilePath(dir, recA, recA.Files[0])
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("existing"), 0o644))

	recB := testRecording()
	recB.UUID = "other-uuid"
	recB.Topic = "Retro"

	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		t.Fatal("dry run must not fetch")
		return nil, nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir, DryRun: true})

	manifest, err := o.Run(context.Background(), []zoom.Recording{recA, recB})
	require.NoError(t, err)
	require.NoError(t, manifest.Err())

	reasons := map[string]int{}
	for _, e := range manifest.Entries() {
		assert.Equal(t, OutcomeSkipped, e.Outcome)
		reasons[e.Reason]++
	}
	assert.Equal(t, 1, reasons[ReasonExists])
	assert.Equal(t, 1, reasons[ReasonWouldDownload])
	assert.Empty(t, ff.calls())
}

func TestRun_PermissionDeniedAmongSuccesses(t *testing.T) {
	dir := t.TempDir()
	denied := &zoom.PermissionError{APIError: zoom.APIError{StatusCode: 403, Message: "host-only download"}}

	ff := &fakeFetcher{fn: func(_ int, f zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		if f.ID == "file-restricted" {
			return nil, denied
		}
		return fullStream("ok"), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir, Concurrency: 1})

	rec := testRecording()
	rec.Files = append(rec.Files, zoom.RecordingFile{
		ID: "file-restricted", FileType: "M4A", FileExtension: "m4a",
		DownloadURL: "https://example.zoom.us/rec/download/xyz",
	})

	manifest, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err, "per-file permission failures are not run-fatal")

	succeeded, _, failed := manifest.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	merr := manifest.Err()
	require.Error(t, merr)
	assert.True(t, zoom.IsPermission(merr))
	// Permission refusals are never retried
	assert.Len(t, ff.calls(), 2)
}

func TestRun_AuthFailureAbortsRun(t *testing.T) {
	dir := t.TempDir()
	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return nil, &zoom.AuthError{APIError: zoom.APIError{StatusCode: 401, Message: "invalid client"}}
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir, Concurrency: 1})

	manifest, err := o.Run(context.Background(), []zoom.Recording{testRecording()})
	require.Error(t, err)
	assert.True(t, zoom.IsAuth(err))
	assert.Error(t, manifest.Err())
}

func TestRun_RetriesTransientFetchFailures(t *testing.T) {
	dir := t.TempDir()
	transient := &zoom.TransientError{APIError: zoom.APIError{StatusCode: 503, Message: "service unavailable"}}

	ff := &fakeFetcher{fn: func(call int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		if call < 2 {
			return nil, transient
		}
		return fullStream("eventually"), nil
	}}
	o, sleeps := newTestOrchestrator(t, ff, Config{TargetDir: dir, MaxRetries: 3})

	manifest, err := o.Run(context.Background(), []zoom.Recording{testRecording()})
	require.NoError(t, err)
	require.NoError(t, manifest.Err())
	assert.Len(t, ff.calls(), 3)
	assert.Equal(t, 2, *sleeps)
}

func TestRun_RetryBudgetExhausted(t *testing.T) {
	dir := t.TempDir()
	transient := &zoom.TransientError{APIError: zoom.APIError{StatusCode: 502, Message: "bad gateway"}}

	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return nil, transient
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir, MaxRetries: 2})

	manifest, err := o.Run(context.Background(), []zoom.Recording{testRecording()})
	require.NoError(t, err)

	// Initial attempt plus two retries
	assert.Len(t, ff.calls(), 3)
	entries := manifest.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeFailed, entries[0].Outcome)
	assert.True(t, zoom.IsTransient(entries[0].Err))
}

func TestRun_ResumesLeftoverPartial(t *testing.T) {
	dir := t.TempDir()
	const content = "hello world"

	rec := testRecording()
	dest := BuildFilePath(dir, rec, rec.Files[0])
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest+partSuffix, []byte(content[:5]), 0o644))

	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, offset int64) (*zoom.DownloadStream, error) {
		return &zoom.DownloadStream{
			Body:          io.NopCloser(strings.NewReader(content[offset:])),
			ContentLength: int64(len(content)) - offset,
			Resumed:       true,
		}, nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir})

	manifest, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)
	require.NoError(t, manifest.Err())

	assert.Equal(t, []int64{5}, ff.calls())

	entries := manifest.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeSucceeded, entries[0].Outcome)
	assert.True(t, entries[0].Resumed)
	assert.Equal(t, int64(len(content)), entries[0].Bytes)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestRun_RestartsWhenRangeIgnored(t *testing.T) {
	dir := t.TempDir()
	const content = "hello world"

	rec := testRecording()
	dest := BuildFilePath(dir, rec, rec.Files[0])
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest+partSuffix, []byte(content[:5]), 0o644))

	// Full body with Resumed=false: the provider ignored the range.
	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return fullStream(content), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir})

	manifest, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)
	require.NoError(t, manifest.Err())

	assert.Equal(t, []int64{5}, ff.calls())

	entries := manifest.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeSucceeded, entries[0].Outcome)
	assert.False(t, entries[0].Resumed)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestRun_InterruptedTransferRetriesFromZero(t *testing.T) {
	dir := t.TempDir()
	const content = "hello world"

	ff := &fakeFetcher{fn: func(call int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		if call == 0 {
			// Connection drops after the first five bytes.
			return &zoom.DownloadStream{
				Body:          io.NopCloser(&failingReader{payload: content[:5], err: io.ErrUnexpectedEOF}),
				ContentLength: int64(len(content)),
			}, nil
		}
		return fullStream(content), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir})

	rec := testRecording()
	manifest, err := o.Run(context.Background(), []zoom.Recording{rec})
	require.NoError(t, err)
	require.NoError(t, manifest.Err())

	// The interrupted attempt removes its partial, so the retry starts over.
	assert.Equal(t, []int64{0, 0}, ff.calls())

	entries := manifest.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeSucceeded, entries[0].Outcome)
	assert.False(t, entries[0].Resumed)

	data, err := os.ReadFile(BuildFilePath(dir, rec, rec.Files[0]))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestRun_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	ff := &fakeFetcher{fn: func(_ int, _ zoom.RecordingFile, _ int64) (*zoom.DownloadStream, error) {
		return fullStream("ok"), nil
	}}
	o, _ := newTestOrchestrator(t, ff, Config{TargetDir: dir})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manifest, err := o.Run(ctx, []zoom.Recording{testRecording()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	for _, e := range manifest.Entries() {
		assert.Equal(t, OutcomeFailed, e.Outcome)
	}
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}
