package pipeline

import (
	"context"
	"io/fs"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/config"
	"github.com/tsgonest/clientgen/internal/diagnostic"
	"github.com/tsgonest/clientgen/internal/jsonschema"
	"github.com/tsgonest/clientgen/internal/logging"
	"github.com/tsgonest/clientgen/internal/output"
	"github.com/tsgonest/clientgen/internal/routetable"
	"github.com/tsgonest/clientgen/internal/sdkgen"
)

// Analysis is an open analysis session: the type provider and the schema
// provider backed by it. Closing Provider releases both.
type Analysis struct {
	Provider analyzer.Provider
	Schemas  jsonschema.Provider
}

// Opener acquires an analysis session.
type Opener func(ctx context.Context, opts analyzer.Options) (*Analysis, error)

// OpenPackages loads the project with go/packages.
func OpenPackages(ctx context.Context, opts analyzer.Options) (*Analysis, error) {
	s, err := analyzer.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Analysis{Provider: s, Schemas: jsonschema.NewDeriver(s)}, nil
}

// Coordinator runs the pipeline. Its methods serialize with each other;
// runs from separate processes against the same output are not guarded.
type Coordinator struct {
	mu sync.Mutex

	cfg    *config.Config
	table  routetable.Table
	open   Opener
	sink   output.Sink
	logger *zap.SugaredLogger
	now    func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithRouteTable replaces the manifest named by routes.manifest.
func WithRouteTable(t routetable.Table) Option {
	return func(c *Coordinator) { c.table = t }
}

// WithOpener replaces package loading.
func WithOpener(o Opener) Option {
	return func(c *Coordinator) { c.open = o }
}

// WithSink replaces the filesystem sink.
func WithSink(s output.Sink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock sets the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a coordinator for cfg.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:  cfg,
		open: OpenPackages,
		sink: output.FileSink{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.table == nil {
		c.table = routetable.File{Path: cfg.Routes.Manifest}
	}
	c.logger = logging.Component(c.logger, "pipeline")
	return c
}

// Trigger runs the pipeline once and writes the module.
func (c *Coordinator) Trigger() error {
	_, err := c.Run(context.Background())
	return err
}

// OnStartup runs the pipeline when generate.onStartup is set and reports
// whether it ran.
func (c *Coordinator) OnStartup(ctx context.Context) (bool, error) {
	if !c.cfg.Generate.OnStartup {
		return false, nil
	}
	_, err := c.Run(ctx)
	return true, err
}

// Run generates the module and writes it through the sink. On failure the
// sink is not touched, so the previous module stays in place.
func (c *Coordinator) Run(ctx context.Context) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, err := c.generate(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	changed, err := c.write(run.OutputPath, run.Module.Text)
	run.Timings.Write = time.Since(start)
	run.Timings.Total += run.Timings.Write
	if err != nil {
		return nil, errors.Wrapf(err, "writing %s", run.OutputPath)
	}
	run.Written, run.Changed = true, changed

	c.logger.Infow("client generated",
		logging.FieldRunID, run.ID,
		"path", run.OutputPath,
		"routes", len(run.Routes),
		"types", len(run.Schemas),
		"changed", changed,
		"warnings", run.Diagnostics.WarningCount(),
	)
	return run, nil
}

// write hands text to the sink unless the stored module differs from it only
// in the generation timestamp.
func (c *Coordinator) write(path, text string) (bool, error) {
	if reader, ok := c.sink.(output.Reader); ok {
		existing, err := reader.Read(path)
		if err == nil && sdkgen.StripTimestamp(string(existing)) == sdkgen.StripTimestamp(text) {
			return false, nil
		}
	}
	return c.sink.Write(path, []byte(text))
}

// Generate produces the module in memory without writing it.
func (c *Coordinator) Generate(ctx context.Context) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generate(ctx)
}

// Check regenerates in memory and compares with the module the sink holds,
// ignoring the generation timestamp.
func (c *Coordinator) Check(ctx context.Context) (*CheckResult, error) {
	reader, ok := c.sink.(output.Reader)
	if !ok {
		return nil, errors.New("output sink cannot read modules back")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	run, err := c.generate(ctx)
	if err != nil {
		return nil, err
	}
	res := &CheckResult{Run: run}
	existing, err := reader.Read(run.OutputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Missing = true
	case err != nil:
		return nil, errors.Wrapf(err, "reading %s", run.OutputPath)
	default:
		res.UpToDate = sdkgen.StripTimestamp(string(existing)) == sdkgen.StripTimestamp(run.Module.Text)
	}
	return res, nil
}

// generate runs every stage up to client emission. The analysis session is
// released before it returns, whatever the outcome.
func (c *Coordinator) generate(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		StartedAt:   c.now(),
		Diagnostics: diagnostic.NewCollector(),
		OutputPath:  c.cfg.Output.Path,
	}
	log := c.logger.With(logging.FieldRunID, run.ID)
	started := time.Now()
	defer func() { run.Timings.Total = time.Since(started) }()

	checked := c.cfg.ValidateDetailed()
	if !checked.IsValid() {
		return nil, &config.ValidationError{Problems: checked.Errors}
	}
	for _, w := range checked.Warnings {
		run.Diagnostics.Warn(diagnostic.CategoryConfigInvalid, "config", w)
	}

	stage := time.Now()
	entries, err := c.table.Routes()
	run.Timings.RouteTable = time.Since(stage)
	if err != nil {
		return nil, errors.Wrap(err, "loading route table")
	}
	log.Debugw("route table loaded", "routes", len(entries))

	if len(entries) > 0 {
		if err := c.analyze(ctx, run, entries, log); err != nil {
			return nil, err
		}
	} else {
		run.Routes = []analyzer.EnrichedRoute{}
		log.Infow("route table is empty, emitting the client base only")
	}

	stage = time.Now()
	mod, err := sdkgen.Generate(run.Routes, run.Schemas, sdkgen.Options{
		ClientName: c.cfg.Output.ClientName,
		Suffix:     c.cfg.Controllers.Suffix,
		Envelope:   c.cfg.Output.Envelope,
		Now:        c.now,
	})
	run.Timings.Emit = time.Since(stage)
	if err != nil {
		return nil, errors.Wrap(err, "emitting client")
	}
	run.Module = mod
	run.Digest = output.Digest([]byte(mod.Text))
	return run, nil
}

// analyze acquires an analysis session, enriches the routes and collects
// schemas, and releases the session on every path.
func (c *Coordinator) analyze(ctx context.Context, run *Run, entries []routetable.RouteEntry, log *zap.SugaredLogger) (err error) {
	cfg := c.cfg

	stage := time.Now()
	session, err := c.open(ctx, analyzer.Options{
		Dir:         cfg.Project.Dir,
		Patterns:    cfg.Project.Patterns,
		Tags:        cfg.Project.Tags,
		Exclude:     cfg.Controllers.Exclude,
		Suffix:      cfg.Controllers.Suffix,
		Unwrap:      cfg.Analysis.Unwrap,
		CacheSize:   cfg.Analysis.CacheSize,
		Logger:      log,
		Diagnostics: run.Diagnostics,
	})
	run.Timings.Session = time.Since(stage)
	if err != nil {
		return errors.Wrap(err, "opening analysis session")
	}
	defer func() {
		if cerr := session.Provider.Close(); cerr != nil {
			if err == nil {
				err = errors.Wrap(cerr, "closing analysis session")
				return
			}
			log.Warnw("closing analysis session failed", "error", cerr)
		}
	}()

	stage = time.Now()
	routes, err := analyzer.NewRouteAnalyzer(session.Provider, analyzer.RouteOptions{
		Pattern:          cfg.Controllers.Pattern,
		StrictParameters: cfg.Analysis.StrictParameters,
		Logger:           log,
		Diagnostics:      run.Diagnostics,
	}).Analyze(ctx, entries)
	run.Timings.Routes = time.Since(stage)
	if err != nil {
		return errors.Wrap(err, "analyzing routes")
	}
	run.Routes = routes

	stage = time.Now()
	run.Schemas = sdkgen.NewSchemaGenerator(session.Provider, session.Schemas, sdkgen.SchemaOptions{
		Pattern:     cfg.Controllers.Pattern,
		Logger:      log,
		Diagnostics: run.Diagnostics,
	}).Generate(ctx, routes)
	run.Timings.Schemas = time.Since(stage)
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "collecting schemas")
	}
	return nil
}
