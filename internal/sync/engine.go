// Package sync turns sheet changes into file mirrors on the destination.
package sync

import (
	"context"
	"errors"
	"io"
	"net"
	"sort"
	stdsync "sync"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/changes"
	"github.com/dl-alexandre/sheetmirror/internal/destination"
	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/sync/mirror"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("sync: run already in progress")

// Run modes
const (
	ModeChanges = "changes"
	ModeFull    = "full"
)

// FileSyncer mirrors one file
type FileSyncer interface {
	Sync(ctx context.Context, conn destination.Conn, ref types.FileReference, destFolder, destName string) (mirror.Outcome, error)
}

// Options tune a run
type Options struct {
	// Concurrency bounds rows processed in parallel; files within a row are sequential
	Concurrency int
	// RunTimeout bounds a whole run; zero means no limit
	RunTimeout time.Duration
}

// Engine polls the sheet and mirrors the files of changed rows
type Engine struct {
	detector *changes.Detector
	syncer   FileSyncer
	dialer   destination.Dialer
	opts     Options
	logger   logging.Logger

	running stdsync.Mutex
}

// NewEngine wires an engine
func NewEngine(detector *changes.Detector, syncer FileSyncer, dialer destination.Dialer, opts Options, logger logging.Logger) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = utils.DefaultConcurrency
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		detector: detector,
		syncer:   syncer,
		dialer:   dialer,
		opts:     opts,
		logger:   logger,
	}
}

// Run polls for changed rows and mirrors their files
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	return e.run(ctx, ModeChanges, e.detector.Poll)
}

// RunAll mirrors every row of the sheet and seeds the baseline. Unchanged files
// are skipped by the content check.
func (e *Engine) RunAll(ctx context.Context) (*Result, error) {
	return e.run(ctx, ModeFull, e.detector.Capture)
}

func (e *Engine) run(ctx context.Context, mode string, collect func(context.Context) (types.ChangeSet, error)) (*Result, error) {
	if !e.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.running.Unlock()

	if e.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RunTimeout)
		defer cancel()
	}

	result := &Result{
		RunID:     uuid.New().String(),
		Mode:      mode,
		StartedAt: time.Now(),
	}
	log := e.logger.WithTraceID(result.RunID)
	ctx = logging.ContextWithTraceID(ctx, result.RunID)
	defer func() { result.FinishedAt = time.Now() }()

	changed, err := collect(ctx)
	if err != nil {
		log.Error("Failed to read sheet", logging.F("error", err.Error()))
		return result, err
	}
	result.ChangedRows = len(changed)
	if changed.Empty() {
		log.Info(summaryNoChanges)
		return result, nil
	}

	rows := make([]Row, 0, len(changed))
	for _, c := range changed {
		row, err := ParseRow(c.Index, c.Row)
		if err != nil {
			result.InvalidRows++
			if isBlank(c.Row) {
				log.Debug("Skipping blank row", logging.F("row", c.Index+1))
			} else {
				log.Warn("Skipping invalid row",
					logging.F("row", c.Index+1),
					logging.F("error", err.Error()),
				)
			}
			continue
		}
		rows = append(rows, row)
	}
	log.Info("Processing changed rows",
		logging.F("mode", mode),
		logging.F("changed", len(changed)),
		logging.F("valid", len(rows)),
	)
	if len(rows) == 0 {
		return result, nil
	}

	if err := e.mirrorRows(ctx, log, rows, result); err != nil {
		return result, err
	}

	log.Info(result.Summary(),
		logging.F("uploaded", result.Uploaded),
		logging.F("replaced", result.Replaced),
		logging.F("skipped", result.Skipped),
		logging.F("failed", result.Failed),
	)
	return result, nil
}

func (e *Engine) mirrorRows(ctx context.Context, log logging.Logger, rows []Row, result *Result) error {
	pool := destination.NewPool(e.dialer, log)
	defer func() {
		if err := pool.CloseAll(); err != nil {
			log.Warn("Failed to close destination connections", logging.F("error", err.Error()))
		}
	}()

	// Connect once up front so an unreachable destination aborts the run
	conn, err := pool.Get(ctx)
	if err != nil {
		log.Error("Failed to connect to destination", logging.F("error", err.Error()))
		return connectFailed(err)
	}
	pool.Put(conn)

	var mu stdsync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, row := range rows {
		g.Go(func() error {
			files, err := e.mirrorRow(gctx, log, pool, row)
			mu.Lock()
			for _, f := range files {
				result.add(f)
			}
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.SliceStable(result.Files, func(i, j int) bool {
		return result.Files[i].Row < result.Files[j].Row
	})
	if err := ctx.Err(); err != nil {
		return utils.NewCLIError(utils.ErrCodeCancelled, "sync run interrupted").WithCause(err).Err()
	}
	return nil
}

// mirrorRow syncs a row's files on one checked-out connection. Only a failure
// to obtain a connection is returned; file failures are recorded.
func (e *Engine) mirrorRow(ctx context.Context, log logging.Logger, pool *destination.Pool, row Row) ([]FileResult, error) {
	conn, err := pool.Get(ctx)
	if err != nil {
		return nil, connectFailed(err)
	}

	var results []FileResult
	for _, target := range row.Targets() {
		fr := FileResult{
			Row:    row.Index,
			Folder: row.Folder,
			Name:   target.DestName,
			Kind:   target.Ref.Kind,
			Link:   target.Ref.Link,
		}
		if err := ctx.Err(); err != nil {
			fr.Error = err.Error()
			fr.Code = utils.ErrCodeCancelled
			results = append(results, fr)
			continue
		}

		outcome, err := e.syncer.Sync(ctx, conn, target.Ref, row.Folder, target.DestName)
		if err != nil {
			fr.Error = err.Error()
			fr.Code = utils.ErrorCode(err)
			log.Error("Failed to mirror file",
				logging.F("row", row.Index+1),
				logging.F("folder", row.Folder),
				logging.F("kind", string(target.Ref.Kind)),
				logging.F("code", fr.Code),
				logging.F("error", err.Error()),
			)
			if isConnError(err) {
				pool.Discard(conn)
				if conn, err = pool.Get(ctx); err != nil {
					results = append(results, fr)
					return results, connectFailed(err)
				}
			}
		} else {
			fr.Outcome = outcome
		}
		results = append(results, fr)
	}
	pool.Put(conn)
	return results, nil
}

// isConnError reports failures that leave the control connection unusable
func isConnError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func connectFailed(err error) error {
	return utils.NewCLIError(utils.ErrCodeNetworkError, "failed to connect to destination").
		WithRetryable(true).
		WithCause(err).
		Err()
}
