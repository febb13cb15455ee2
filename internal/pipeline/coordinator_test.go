package pipeline_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/config"
	"github.com/tsgonest/clientgen/internal/diagnostic"
	"github.com/tsgonest/clientgen/internal/jsonschema"
	"github.com/tsgonest/clientgen/internal/output"
	"github.com/tsgonest/clientgen/internal/pipeline"
	"github.com/tsgonest/clientgen/internal/routetable"
	"github.com/tsgonest/clientgen/internal/sdkgen"
	"github.com/tsgonest/clientgen/internal/testutil"
)

const usersSrc = `package api

import "context"

type User struct {
	ID   string ` + "`json:\"id\"`" + `
	Name string ` + "`json:\"name\"`" + `
}

type CreateUserRequest struct {
	Name string ` + "`json:\"name\"`" + `
}

type UsersController struct{}

func (c *UsersController) FindOne(ctx context.Context, id string) (*User, error) { return nil, nil }

func (c *UsersController) Create(ctx context.Context, body CreateUserRequest) (*User, error) {
	return nil, nil
}
`

const outPath = "client/api.ts"

var clock = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

// trackedProvider counts Close calls on a fixture session.
type trackedProvider struct {
	*analyzer.Session
	mu     sync.Mutex
	closes int
}

func (p *trackedProvider) Close() error {
	p.mu.Lock()
	p.closes++
	p.mu.Unlock()
	return p.Session.Close()
}

// fixtureOpener opens fixture sessions and remembers every one it hands out.
type fixtureOpener struct {
	t        *testing.T
	schemas  jsonschema.Provider
	opened   []*trackedProvider
	lastOpts analyzer.Options
}

func (o *fixtureOpener) open(_ context.Context, opts analyzer.Options) (*pipeline.Analysis, error) {
	o.lastOpts = opts
	opts.Dir = testutil.FixtureRoot
	s := testutil.NewSession(o.t, opts, testutil.Package{
		Path:  "example.com/app/api",
		Dir:   "api",
		Files: map[string]string{"users_controller.go": usersSrc},
	})
	p := &trackedProvider{Session: s}
	o.opened = append(o.opened, p)

	var schemas jsonschema.Provider = jsonschema.NewDeriver(s)
	if o.schemas != nil {
		schemas = o.schemas
	}
	return &pipeline.Analysis{Provider: p, Schemas: schemas}, nil
}

func (o *fixtureOpener) allClosed(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, o.opened, "no session was opened")
	for _, p := range o.opened {
		assert.Equal(t, 1, p.closes, "session must be closed exactly once")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Project.Dir = t.TempDir()
	cfg.Output.Path = outPath
	return &cfg
}

func userRoutes() routetable.Static {
	return routetable.Static{
		{
			Controller: "UsersController", Handler: "FindOne", Method: "GET", Route: "users", Path: ":id",
			Parameters: []routetable.ParamDescriptor{{Index: 1, Source: routetable.SourcePath, Data: ":id"}},
		},
		{
			Controller: "UsersController", Handler: "Create", Method: "POST", Route: "users",
			Parameters: []routetable.ParamDescriptor{{Index: 1, Source: routetable.SourceBody}},
		},
	}
}

func newCoordinator(t *testing.T, cfg *config.Config, table routetable.Table, sink output.Sink) (*pipeline.Coordinator, *fixtureOpener) {
	t.Helper()
	opener := &fixtureOpener{t: t}
	c := pipeline.New(cfg,
		pipeline.WithRouteTable(table),
		pipeline.WithOpener(opener.open),
		pipeline.WithSink(sink),
		pipeline.WithClock(clock),
	)
	return c, opener
}

func TestRun_WritesModule(t *testing.T) {
	sink := output.NewMemorySink()
	cfg := testConfig(t)
	cfg.Controllers.Exclude = []string{"legacy/**"}
	c, opener := newCoordinator(t, cfg, userRoutes(), sink)

	run, err := c.Run(context.Background())
	require.NoError(t, err)
	opener.allClosed(t)

	_, err = uuid.Parse(run.ID)
	assert.NoError(t, err)
	assert.Equal(t, clock(), run.StartedAt)
	assert.True(t, run.Written)
	assert.True(t, run.Changed)
	assert.Len(t, run.Routes, 2)
	assert.Equal(t, output.Digest([]byte(run.Module.Text)), run.Digest)

	var names []string
	for _, r := range run.Schemas {
		names = append(names, r.TypeName)
	}
	assert.Equal(t, []string{"CreateUserRequest", "User"}, names)

	text, err := sink.Read(outPath)
	require.NoError(t, err)
	assert.Equal(t, run.Module.Text, string(text))
	assert.Contains(t, string(text), "get users()")
	assert.Contains(t, string(text), "`/users/${encodeURIComponent(String(options.params.id))}`")
	assert.Contains(t, string(text), "create: (options: RequestOptions<never, never, CreateUserRequest>): Promise<User> =>")
	assert.Equal(t, 1, strings.Count(string(text), "export interface User {"))

	assert.Equal(t, cfg.Project.Dir, opener.lastOpts.Dir)
	assert.Equal(t, "Controller", opener.lastOpts.Suffix)
	assert.Equal(t, []string{"legacy/**"}, opener.lastOpts.Exclude)
}

func TestRun_Idempotent(t *testing.T) {
	sink := output.NewMemorySink()
	c, _ := newCoordinator(t, testConfig(t), userRoutes(), sink)

	first, err := c.Run(context.Background())
	require.NoError(t, err)
	second, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Module.Text, second.Module.Text)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, sink.Writes())
}

func TestRun_TimestampOnlyChangeIsNotWritten(t *testing.T) {
	sink := output.NewMemorySink()
	now := clock()
	c := pipeline.New(testConfig(t),
		pipeline.WithRouteTable(routetable.Static{}),
		pipeline.WithSink(sink),
		pipeline.WithClock(func() time.Time {
			now = now.Add(time.Second)
			return now
		}),
	)

	first, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Changed)
	second, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Module.Text, second.Module.Text)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, sink.Writes())

	stored, err := sink.Read(outPath)
	require.NoError(t, err)
	assert.Equal(t, first.Module.Text, string(stored), "the stored module keeps its first timestamp")
}

func TestRun_FailureLeavesPreviousModule(t *testing.T) {
	sink := output.NewMemorySink()
	_, err := sink.Write(outPath, []byte("previous"))
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Analysis.StrictParameters = true
	routes := userRoutes()
	routes[0].Parameters[0].Index = 7
	c, opener := newCoordinator(t, cfg, routes, sink)

	run, err := c.Run(context.Background())
	assert.Nil(t, run)
	var aerr *analyzer.AnalysisError
	require.True(t, errors.As(err, &aerr), "got %v", err)
	assert.Equal(t, "UsersController.FindOne", aerr.Failures[0].Route)

	opener.allClosed(t)
	text, _ := sink.Read(outPath)
	assert.Equal(t, "previous", string(text))
}

func TestRun_EmitErrorReleasesSession(t *testing.T) {
	sink := output.NewMemorySink()
	routes := userRoutes()
	routes[1].Method = "FETCH"
	c, opener := newCoordinator(t, testConfig(t), routes, sink)

	_, err := c.Run(context.Background())
	var emitErr *sdkgen.EmitError
	require.True(t, errors.As(err, &emitErr), "got %v", err)
	opener.allClosed(t)
	assert.Zero(t, sink.Writes())
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Controllers.Pattern = ""
	cfg.Output.ClientName = "not valid"
	c, opener := newCoordinator(t, cfg, userRoutes(), output.NewMemorySink())

	_, err := c.Run(context.Background())
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Len(t, verr.Problems, 2)
	assert.Empty(t, opener.opened, "no analysis before the config is valid")
}

func TestRun_ConfigWarningsBecomeDiagnostics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Path = "client/api.js"
	c, _ := newCoordinator(t, cfg, routetable.Static{}, output.NewMemorySink())

	run, err := c.Run(context.Background())
	require.NoError(t, err)
	diags := run.Diagnostics.ByCategory(diagnostic.CategoryConfigInvalid)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "output.path")
}

func TestRun_RouteTableError(t *testing.T) {
	cfg := testConfig(t)
	c, opener := newCoordinator(t, cfg, routetable.File{Path: "/does/not/exist.json"}, output.NewMemorySink())

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading route table")
	assert.Empty(t, opener.opened)
}

func TestRun_EmptyRouteTable(t *testing.T) {
	sink := output.NewMemorySink()
	c, opener := newCoordinator(t, testConfig(t), routetable.Static{}, sink)

	run, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, run.Routes)
	assert.Empty(t, run.Routes)
	assert.Empty(t, run.Schemas)
	assert.Empty(t, opener.opened, "an empty table needs no analysis session")
	assert.Contains(t, run.Module.Text, "export class ApiClient extends BaseClient {}\n")
}

func TestRun_SchemaFallback(t *testing.T) {
	sink := output.NewMemorySink()
	c, opener := newCoordinator(t, testConfig(t), userRoutes(), sink)
	opener.schemas = jsonschema.ProviderFunc(func(name string) (*jsonschema.Document, error) {
		return nil, errors.Newf("cannot derive %s", name)
	})

	run, err := c.Run(context.Background())
	require.NoError(t, err)
	for _, r := range run.Schemas {
		assert.True(t, r.Fallback)
		assert.Equal(t, jsonschema.Fallback(), r.Schema)
	}
	assert.Len(t, run.Diagnostics.ByCategory(diagnostic.CategorySchemaFallback), 2)
	assert.Contains(t, run.Module.Text, "// schema unavailable: no definition for User")
}

func TestCheck(t *testing.T) {
	sink := output.NewMemorySink()
	cfg := testConfig(t)
	c, _ := newCoordinator(t, cfg, userRoutes(), sink)

	res, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Missing)
	assert.False(t, res.UpToDate)

	_, err = c.Run(context.Background())
	require.NoError(t, err)

	later := pipeline.New(cfg,
		pipeline.WithRouteTable(userRoutes()),
		pipeline.WithOpener((&fixtureOpener{t: t}).open),
		pipeline.WithSink(sink),
		pipeline.WithClock(func() time.Time { return clock().Add(time.Hour) }),
	)
	res, err = later.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.UpToDate, "only the timestamp differs")

	_, err = sink.Write(outPath, []byte("stale"))
	require.NoError(t, err)
	res, err = c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, res.UpToDate)
	assert.False(t, res.Missing)
}

func TestOnStartupAndTrigger(t *testing.T) {
	sink := output.NewMemorySink()
	cfg := testConfig(t)
	c, _ := newCoordinator(t, cfg, userRoutes(), sink)

	ran, err := c.OnStartup(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, sink.Writes())

	cfg.Generate.OnStartup = true
	ran, err = c.OnStartup(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	require.NoError(t, c.Trigger())
	assert.Equal(t, 1, sink.Writes())
}

func TestRun_Serialized(t *testing.T) {
	sink := output.NewMemorySink()
	c, opener := newCoordinator(t, testConfig(t), userRoutes(), sink)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Run(context.Background())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, opener.opened, 4)
	opener.allClosed(t)
	assert.Equal(t, 1, sink.Writes())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, opener := newCoordinator(t, testConfig(t), userRoutes(), output.NewMemorySink())

	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	opener.allClosed(t)
}
