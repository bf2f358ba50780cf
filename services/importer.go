package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"listing-importer/config"
	"listing-importer/metrics"
	"listing-importer/models"
	"listing-importer/source"
	"listing-importer/storage"
	"listing-importer/utils"
)

// RunState is the lifecycle of one import run:
// Idle -> Connecting -> Streaming -> Completed | FatalFailed.
// A run can also fail straight from Connecting.
type RunState int

const (
	StateIdle RunState = iota
	StateConnecting
	StateStreaming
	StateCompleted
	StateFatalFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFatalFailed:
		return "fatal_failed"
	}
	return "unknown"
}

// RunResult is the outcome of Execute. Err is the fatal error, if any;
// per-record failures only show up in Stats.
type RunResult struct {
	RunID string
	State RunState
	Stats models.ImportStats
	Err   error
}

// Options tunes an Importer. The zero value imports as fast as the store
// allows, keeps no rejects file and records no metrics.
type Options struct {
	Throttle      *utils.Throttle
	Rejects       storage.RejectSink
	Metrics       *metrics.Import
	ProgressEvery int
}

// Importer streams an input file into the store one record at a time. A
// bad record is counted and skipped; only an unreachable store or an
// unreadable input stops a run.
type Importer struct {
	store    storage.Store
	parser   *Parser
	resolver *OwnerResolver
	reporter *Reporter
	logger   *utils.Logger
	opts     Options

	openSource func(path string) (*source.LineSource, error)
}

func NewImporter(store storage.Store, resolver *OwnerResolver, reporter *Reporter, logger *utils.Logger, opts Options) *Importer {
	return &Importer{
		store:      store,
		parser:     NewParser(),
		resolver:   resolver,
		reporter:   reporter,
		logger:     logger,
		opts:       opts,
		openSource: source.Open,
	}
}

type importRun struct {
	id    string
	cfg   config.RunConfig
	state RunState
	stats models.ImportStats
	log   *utils.Logger
}

func (r *importRun) transition(to RunState) {
	r.log.Debug("[importer] %s -> %s", r.state, to)
	r.state = to
}

// Execute performs one import run. The returned error is the run's fatal
// error (a *ConnectionError, an *InputError or a context error) and is also
// stored in the result. The store connection is always released before
// Execute returns.
func (im *Importer) Execute(ctx context.Context, cfg config.RunConfig) (*RunResult, error) {
	id := uuid.NewString()
	run := &importRun{
		id:  id,
		cfg: cfg,
		log: im.logger.With("run_id", id),
	}
	run.stats.StartedAt = time.Now()

	run.transition(StateConnecting)
	conn, err := im.store.Connect(ctx, cfg.DSN)
	if err != nil {
		return im.finish(ctx, run, nil, &ConnectionError{Err: err})
	}

	src, err := im.openSource(cfg.Path)
	if err != nil {
		return im.finish(ctx, run, conn, &InputError{Path: cfg.Path, Err: err})
	}

	run.transition(StateStreaming)
	run.log.Info("[importer] Importing %s", cfg.Path)
	return im.finish(ctx, run, conn, im.stream(ctx, run, conn, src))
}

// stream consumes src until it is exhausted or fails. Each line is
// acknowledged only after its record has been fully handled.
func (im *Importer) stream(ctx context.Context, run *importRun, conn storage.Conn, src *source.LineSource) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return src.Run(gctx) })

	for line := range src.Lines() {
		im.importLine(ctx, run, conn, line)
		line.Ack()

		if every := im.opts.ProgressEvery; every > 0 && run.stats.Lines%every == 0 {
			run.log.Info("[importer] Processed %d lines (%d%%), %d listings, %d failed",
				run.stats.Lines, src.Progress(), run.stats.ListingsCreated, run.stats.Failed)
		}
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &InputError{Path: run.cfg.Path, Line: src.Delivered(), Err: err}
	}
	return nil
}

func (im *Importer) importLine(ctx context.Context, run *importRun, conn storage.Conn, line source.Line) {
	start := time.Now()
	defer func() { im.opts.Metrics.ObserveLine(time.Since(start)) }()
	run.stats.Lines++

	rec, err := im.parser.Parse(line.Number, line.Text)
	if err != nil {
		run.stats.ParseFailures++
		im.reject(run, line, metrics.ReasonParse, err)
		return
	}

	if err := im.persist(ctx, run, conn, line.Number, rec); err != nil {
		run.stats.StoreFailures++
		im.reject(run, line, metrics.ReasonStore, err)
	}
}

func (im *Importer) persist(ctx context.Context, run *importRun, conn storage.Conn, lineNumber int, rec *models.ListingRecord) error {
	if err := im.opts.Throttle.Wait(ctx); err != nil {
		return &StoreError{Line: lineNumber, Op: "throttle", Err: err}
	}

	res, err := im.resolver.Resolve(ctx, conn, rec.Owner, run.cfg.Salt)
	if err != nil {
		return &StoreError{Line: lineNumber, Op: "resolve owner", Err: err}
	}
	if res.Created {
		run.stats.OwnersCreated++
	} else {
		run.stats.OwnersReused++
	}
	im.opts.Metrics.OwnerResolved(res.Created)

	if _, err := conn.InsertListing(ctx, models.NewListing(rec, res.OwnerID)); err != nil {
		return &StoreError{Line: lineNumber, Op: "create listing", Err: err}
	}
	run.stats.ListingsCreated++
	im.opts.Metrics.ListingCreated()
	return nil
}

func (im *Importer) reject(run *importRun, line source.Line, reason string, err error) {
	run.stats.Failed++
	im.opts.Metrics.Failed(reason)
	run.log.Warn("[importer] Line %d skipped: %v", line.Number, err)

	if im.opts.Rejects == nil {
		return
	}
	if werr := im.opts.Rejects.WriteReject(line.Number, err.Error(), line.Text); werr != nil {
		run.log.Error("[importer] Failed to record rejected line %d: %v", line.Number, werr)
	}
}

func (im *Importer) finish(ctx context.Context, run *importRun, conn storage.Conn, fatal error) (*RunResult, error) {
	run.stats.Duration = time.Since(run.stats.StartedAt)
	if fatal != nil {
		run.transition(StateFatalFailed)
	} else {
		run.transition(StateCompleted)
	}

	err := im.reporter.Report(ctx, conn, run.id, &run.stats, fatal)
	return &RunResult{RunID: run.id, State: run.state, Stats: run.stats, Err: err}, err
}
