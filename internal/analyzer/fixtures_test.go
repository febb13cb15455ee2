package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/diagnostic"
	"github.com/tsgonest/clientgen/internal/testutil"
)

const modelsSrc = `package api

import "time"

// User is a registered account.
type User struct {
	ID   string ` + "`json:\"id\"`" + `
	Name string ` + "`json:\"name\"`" + `
	// Email is optional.
	Email     *string   ` + "`json:\"email,omitempty\"`" + `
	Role      Role      ` + "`json:\"role\"`" + `
	CreatedAt time.Time ` + "`json:\"createdAt\"`" + `
	Manager   *User     ` + "`json:\"manager,omitempty\"`" + `
	Secret    string    ` + "`json:\"-\"`" + `
	password  string
	Audit
}

type Audit struct {
	UpdatedBy string ` + "`json:\"updatedBy\"`" + `
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type CreateUserRequest struct {
	Name string   ` + "`json:\"name\"`" + `
	Tags []string ` + "`json:\"tags,omitempty\"`" + `
}

type ListQuery struct {
	Page  int ` + "`json:\"page,omitempty\"`" + `
	Limit int ` + "`json:\"limit,omitempty\"`" + `
}

type Promise[T any] struct{ Value T }

type List[T any] []T

type Page[T any] struct {
	Items []T ` + "`json:\"items\"`" + `
	Total int ` + "`json:\"total\"`" + `
}

type UserAlias = User

type Date struct {
	Day int ` + "`json:\"day\"`" + `
}

type Labels map[string]string
`

const controllerSrc = `package api

import "context"

type UsersController struct{}

func (c *UsersController) FindAll(ctx context.Context, query ListQuery) (Page[User], error) {
	return Page[User]{}, nil
}

func (c *UsersController) FindOne(ctx context.Context, id string) (*User, error) { return nil, nil }

func (c *UsersController) Create(ctx context.Context, body CreateUserRequest) (Promise[User], error) {
	return Promise[User]{}, nil
}

func (c *UsersController) Remove(ctx context.Context, _ string) error { return nil }

func (c UsersController) Alias(ctx context.Context) (UserAlias, error) { return UserAlias{}, nil }

func (c *UsersController) Batch(ctx context.Context, ids List[string]) ([]User, error) { return nil, nil }

func (c *UsersController) When(ctx context.Context) (Date, error) { return Date{}, nil }

func (c *UsersController) Tag(ctx context.Context, labels Labels) (map[string]User, error) { return nil, nil }

func (c *UsersController) helper() {}

type HealthController struct{}

func (HealthController) Ping() {}
`

const legacySrc = `package legacy

type UsersController struct{}

func (UsersController) FindAll() string { return "" }

type ControllerConfig struct{}
`

func fixturePackages() []testutil.Package {
	return []testutil.Package{
		{
			Path: "example.com/app/api",
			Dir:  "api",
			Files: map[string]string{
				"models.go":           modelsSrc,
				"users_controller.go": controllerSrc,
			},
		},
		testutil.Source("example.com/app/legacy", "legacy", "users_controller.go", legacySrc),
	}
}

func newFixtureSession(t *testing.T) (*analyzer.Session, *diagnostic.Collector) {
	t.Helper()
	diags := diagnostic.NewCollector()
	s := testutil.NewSession(t, analyzer.Options{Diagnostics: diags}, fixturePackages()...)
	return s, diags
}

func usersController(t *testing.T, s *analyzer.Session) *analyzer.Controller {
	t.Helper()
	ctrls, err := s.ListControllerClasses("api/**/*_controller.go")
	require.NoError(t, err)
	ctrl, ok := ctrls["UsersController"]
	require.True(t, ok, "UsersController not found")
	return ctrl
}

func method(t *testing.T, s *analyzer.Session, name string) *analyzer.Method {
	t.Helper()
	m, ok := s.Method(usersController(t, s), name)
	require.True(t, ok, "method %s not found", name)
	return m
}
