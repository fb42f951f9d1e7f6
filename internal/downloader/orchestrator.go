package downloader

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/zoomscribe/zoomscribe/internal/instrumentation"
	"github.com/zoomscribe/zoomscribe/internal/logging"
	"github.com/zoomscribe/zoomscribe/internal/zoom"
)

const (
	defaultConcurrency = 4
	defaultMaxRetries  = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// Fetcher opens download streams for recording files. *zoom.Client
// satisfies it; tests substitute fakes.
type Fetcher interface {
	DownloadFile(ctx context.Context, f zoom.RecordingFile, offset int64) (*zoom.DownloadStream, error)
}

// Config configures an Orchestrator.
type Config struct {
	// TargetDir is the root directory downloads are written beneath.
	TargetDir string

	// Overwrite re-downloads files that already exist on disk.
	Overwrite bool

	// DryRun plans the work without touching the network or the disk.
	DryRun bool

	// Concurrency is the worker pool size. Defaults to 4.
	Concurrency int

	// MaxRetries is the per-file transfer retry budget. Defaults to 3.
	MaxRetries int

	// BackoffBase is the base delay for transfer retries. Defaults to 500ms.
	BackoffBase time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil disables metric recording.
	Metrics *instrumentation.Metrics

	// Audit is optional; nil disables the download audit trail.
	Audit *instrumentation.AuditLogger
}

// Orchestrator drains recording listings into local files through a fixed
// worker pool, recording every per-file outcome in a Manifest.
type Orchestrator struct {
	client      Fetcher
	targetDir   string
	overwrite   bool
	dryRun      bool
	concurrency int
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	audit       *instrumentation.AuditLogger

	// injectable for deterministic tests
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// New creates a download orchestrator.
func New(client Fetcher, cfg Config) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("downloader: client is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &instrumentation.Metrics{}
	}

	return &Orchestrator{
		client:      client,
		targetDir:   cfg.TargetDir,
		overwrite:   cfg.Overwrite,
		dryRun:      cfg.DryRun,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		logger:      logging.WithService(cfg.Logger, "downloader"),
		metrics:     cfg.Metrics,
		audit:       cfg.Audit,
		sleep:       sleepCtx,
		jitter:      func() float64 { return 0.5 + rand.Float64() },
	}, nil
}

type task struct {
	rec  zoom.Recording
	file zoom.RecordingFile
	dest string
}

// Run downloads every file of every recording and returns the manifest of
// per-file outcomes. The returned error is non-nil only for run-level
// failures: context cancellation or invalid credentials, which abort the
// remaining work. Per-file failures are reported through Manifest.Err.
func (o *Orchestrator) Run(ctx context.Context, recordings []zoom.Recording) (*Manifest, error) {
	manifest := NewManifest()
	log := logging.WithRunID(o.logger, manifest.RunID)

	var tasks []task
	for _, rec := range recordings {
		for _, f := range rec.Files {
			tasks = append(tasks, task{rec: rec, file: f, dest: BuildFilePath(o.targetDir, rec, f)})
		}
	}

	if o.dryRun {
		o.planOnly(log, manifest, tasks)
		return manifest, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalMu  sync.Mutex
		fatalErr error
	)
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
		cancel()
	}

	queue := make(chan task)
	var wg sync.WaitGroup
	for i := 0; i < o.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range queue {
				if runCtx.Err() != nil {
					manifest.add(Entry{
						MeetingUUID: t.rec.UUID,
						FileID:      t.file.ID,
						FileType:    string(t.file.Type()),
						Path:        t.dest,
						Outcome:     OutcomeFailed,
						Reason:      "run canceled",
						Err:         runCtx.Err(),
					})
					continue
				}
				o.processTask(runCtx, log, manifest, t, setFatal)
			}
		}()
	}

	for _, t := range tasks {
		queue <- t
	}
	close(queue)
	wg.Wait()

	succeeded, skipped, failed := manifest.Counts()
	log.Info("download run complete",
		"succeeded", succeeded,
		"skipped", skipped,
		"failed", failed,
	)

	fatalMu.Lock()
	defer fatalMu.Unlock()
	if fatalErr != nil {
		return manifest, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return manifest, err
	}
	return manifest, nil
}

// planOnly records the exists/would-download split without network or disk
// writes.
func (o *Orchestrator) planOnly(log *slog.Logger, manifest *Manifest, tasks []task) {
	for _, t := range tasks {
		reason := ReasonWouldDownload
		if Exists(t.dest) && !o.overwrite {
			reason = ReasonExists
		}
		manifest.add(Entry{
			MeetingUUID: t.rec.UUID,
			FileID:      t.file.ID,
			FileType:    string(t.file.Type()),
			Path:        t.dest,
			Outcome:     OutcomeSkipped,
			Reason:      reason,
		})
		log.Info("dry run",
			"path", t.dest,
			"reason", reason,
			logging.Meeting(t.rec.UUID),
			"file_type", string(t.file.Type()),
		)
	}
}

func (o *Orchestrator) processTask(ctx context.Context, log *slog.Logger, manifest *Manifest, t task, setFatal func(error)) {
	fileType := string(t.file.Type())
	taskLog := log.With(
		logging.Meeting(t.rec.UUID),
		slog.String("file_type", fileType),
		slog.String("path", t.dest),
	)

	entry := Entry{
		MeetingUUID: t.rec.UUID,
		FileID:      t.file.ID,
		FileType:    fileType,
		Path:        t.dest,
	}

	if Exists(t.dest) && !o.overwrite {
		entry.Outcome = OutcomeSkipped
		entry.Reason = ReasonExists
		manifest.add(entry)
		taskLog.Debug("skipping existing file")
		o.metrics.RecordDownload(ctx, fileType, instrumentation.OutcomeSkipped, 0, 0)
		o.auditEvent(ctx, manifest.RunID, t, entry, 0)
		return
	}

	o.metrics.IncrementActiveDownloads(ctx)
	defer o.metrics.DecrementActiveDownloads(ctx)

	spanCtx, span := instrumentation.StartDownloadSpan(ctx,
		logging.AnonymizeIdentifier(t.rec.UUID), fileType)
	defer span.End()

	start := time.Now()
	bytes, resumed, err := o.transfer(spanCtx, taskLog, t)
	duration := time.Since(start)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		entry.Outcome = OutcomeFailed
		entry.Reason = failureReason(err)
		entry.Err = err
		manifest.add(entry)
		taskLog.Warn("download failed", "reason", entry.Reason, logging.Err(err))
		o.metrics.RecordDownload(spanCtx, fileType, instrumentation.OutcomeFailed, 0, duration)
		o.auditEvent(spanCtx, manifest.RunID, t, entry, duration)
		if zoom.IsAuth(err) {
			// Credentials are bad for the whole run, not just this file.
			setFatal(err)
		}
		return
	}

	instrumentation.SetSpanSuccess(span)
	entry.Outcome = OutcomeSucceeded
	entry.Bytes = bytes
	entry.Resumed = resumed
	manifest.add(entry)
	taskLog.Info("downloaded", "bytes", bytes, "resumed", resumed)
	o.metrics.RecordDownload(spanCtx, fileType, instrumentation.OutcomeSucceeded, bytes, duration)
	o.auditEvent(spanCtx, manifest.RunID, t, entry, duration)
}

// transfer performs the whole-file transfer with a bounded retry budget.
// Permission errors, validation errors, and local filesystem errors are
// never retried; everything else backs off and tries again from zero. A
// partial file left behind by an earlier run is resumed with a range
// request when the provider honours ranges.
func (o *Orchestrator) transfer(ctx context.Context, log *slog.Logger, t task) (int64, bool, error) {
	attempt := 0
	for {
		offset := PartialSize(t.dest)
		stream, err := o.client.DownloadFile(ctx, t.file, offset)
		if err != nil {
			if !retryableTransferError(err) || ctx.Err() != nil {
				return 0, false, err
			}
			if attempt >= o.maxRetries {
				return 0, false, err
			}
			if serr := o.backoff(ctx, attempt, log, err); serr != nil {
				return 0, false, serr
			}
			attempt++
			continue
		}

		if offset > 0 && !stream.Resumed {
			// Provider ignored the range request; restart from zero.
			offset = 0
		}
		expected := zoom.ExpectedTotal(stream, offset)
		written, werr := WriteAtomic(t.dest, stream.Body, offset, expected)
		stream.Body.Close()
		if werr == nil {
			return offset + written, offset > 0, nil
		}

		retryable := errors.Is(werr, ErrTransferInterrupted) || errors.Is(werr, ErrLengthMismatch)
		if !retryable || ctx.Err() != nil || attempt >= o.maxRetries {
			return 0, false, werr
		}
		if serr := o.backoff(ctx, attempt, log, werr); serr != nil {
			return 0, false, serr
		}
		attempt++
	}
}

func (o *Orchestrator) backoff(ctx context.Context, attempt int, log *slog.Logger, cause error) error {
	delay := time.Duration(float64(o.backoffBase) * float64(int64(1)<<attempt) * o.jitter())
	log.Warn("retrying transfer", "attempt", attempt, "delay", delay, logging.Err(cause))
	return o.sleep(ctx, delay)
}

// retryableTransferError reports whether a fetch error is worth another
// attempt. The client has already burned its own retry budget on transient
// statuses, but a second transfer-level attempt still helps for rate limits
// and flapping networks; permission and validation errors never recover.
func retryableTransferError(err error) bool {
	if zoom.IsPermission(err) || zoom.IsAuth(err) || zoom.IsNotFound(err) {
		return false
	}
	var verr *zoom.ValidationError
	return !errors.As(err, &verr)
}

func failureReason(err error) string {
	switch {
	case zoom.IsPermission(err):
		return "permission denied; the recording may be restricted or the token lacks download scope"
	case zoom.IsAuth(err):
		return "authentication failed after token refresh"
	case zoom.IsRateLimit(err):
		return "rate limited after retries"
	case zoom.IsNotFound(err):
		return "recording asset not found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "run canceled"
	default:
		return "transfer failed"
	}
}

func (o *Orchestrator) auditEvent(ctx context.Context, runID string, t task, entry Entry, duration time.Duration) {
	if o.audit == nil {
		return
	}
	ev := instrumentation.NewDownloadEvent(runID).
		WithRecording(t.rec.HostEmail, t.rec.UUID).
		WithFile(t.file.ID, entry.FileType).
		WithDestination(entry.Path).
		WithSpanContext(ctx)
	ev.Resumed = entry.Resumed
	ev.Complete(string(entry.Outcome), entry.Bytes, entry.Err)
	ev.Duration = duration
	o.audit.LogDownload(ev)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
