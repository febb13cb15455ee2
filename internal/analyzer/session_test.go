package analyzer_test

import (
	"context"
	"go/types"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/diagnostic"
	"github.com/tsgonest/clientgen/internal/testutil"
)

func TestListControllerClasses_AllFiles(t *testing.T) {
	s, diags := newFixtureSession(t)

	ctrls, err := s.ListControllerClasses("")
	require.NoError(t, err)
	require.Len(t, ctrls, 2)

	users := ctrls["UsersController"]
	require.NotNil(t, users)
	assert.Equal(t, "api/users_controller.go", users.File)
	assert.Equal(t, "example.com/app/api", users.PkgPath)

	dups := diags.ByCategory(diagnostic.CategoryControllerDuplicate)
	require.Len(t, dups, 1)
	assert.Equal(t, "UsersController", dups[0].Subject)
	assert.Contains(t, dups[0].Message, "using api/users_controller.go")

	sorted := analyzer.SortedControllers(ctrls)
	assert.Equal(t, "UsersController", sorted[0].Name)
	assert.Equal(t, "HealthController", sorted[1].Name)
}

func TestListControllerClasses_Pattern(t *testing.T) {
	s, diags := newFixtureSession(t)

	ctrls, err := s.ListControllerClasses("legacy/*.go")
	require.NoError(t, err)
	require.Len(t, ctrls, 1)
	assert.Equal(t, "legacy/users_controller.go", ctrls["UsersController"].File)
	assert.Empty(t, diags.ByCategory(diagnostic.CategoryControllerDuplicate))

	ctrls, err = s.ListControllerClasses("nothing/**/*.go, other/*.go")
	require.NoError(t, err)
	assert.Empty(t, ctrls)
}

func TestListControllerClasses_Exclude(t *testing.T) {
	diags := diagnostic.NewCollector()
	s := testutil.NewSession(t, analyzer.Options{
		Exclude:     []string{"legacy/**"},
		Diagnostics: diags,
	}, fixturePackages()...)

	ctrls, err := s.ListControllerClasses("")
	require.NoError(t, err)
	require.Len(t, ctrls, 2)
	assert.Equal(t, "api/users_controller.go", ctrls["UsersController"].File)
	assert.Empty(t, diags.ByCategory(diagnostic.CategoryControllerDuplicate))

	ctrls, err = s.ListControllerClasses("legacy/*.go")
	require.NoError(t, err)
	assert.Empty(t, ctrls)
}

func TestController_Methods(t *testing.T) {
	s, _ := newFixtureSession(t)
	ctrl := usersController(t, s)

	var names []string
	for _, m := range ctrl.Methods() {
		names = append(names, m.Name)
		assert.Same(t, ctrl, m.Controller)
	}
	assert.Equal(t, []string{"Alias", "Batch", "Create", "FindAll", "FindOne", "Remove", "Tag", "When"}, names)

	_, ok := s.Method(ctrl, "helper")
	assert.False(t, ok, "unexported methods are not handlers")

	m, ok := s.Method(ctrl, "findAll")
	require.True(t, ok)
	assert.Equal(t, "FindAll", m.Name)
}

func TestMethod_Parameters(t *testing.T) {
	s, _ := newFixtureSession(t)

	m := method(t, s, "FindAll")
	assert.Equal(t, 2, m.ParamCount())
	assert.Equal(t, "ctx", m.ParamName(0))
	assert.Equal(t, "query", m.ParamName(1))
	assert.Equal(t, "", m.ParamName(2))
	assert.Nil(t, m.ParamType(5))

	assert.Equal(t, "", method(t, s, "Remove").ParamName(1))
}

func TestTypeText(t *testing.T) {
	s, _ := newFixtureSession(t)

	tests := []struct {
		method string
		param  int // -1 for the return type
		want   string
	}{
		{"FindAll", 0, "unknown"},
		{"FindAll", 1, "ListQuery"},
		{"FindAll", -1, "PageUser"},
		{"FindAll", 7, ""},
		{"FindOne", 1, "string"},
		{"FindOne", -1, "User"},
		{"Create", 1, "CreateUserRequest"},
		{"Create", -1, "User"},
		{"Remove", -1, "void"},
		{"Alias", -1, "UserAlias"},
		{"Batch", 1, "string[]"},
		{"Batch", -1, "User[]"},
		{"When", -1, "Date_"},
		{"Tag", 1, "Labels"},
		{"Tag", -1, "Record<string, User>"},
	}

	for _, tt := range tests {
		m := method(t, s, tt.method)
		var got string
		if tt.param < 0 {
			got = s.ReturnTypeText(m)
		} else {
			got = s.ParameterTypeText(m, tt.param)
		}
		assert.Equal(t, tt.want, got, "%s[%d]", tt.method, tt.param)
	}
}

func TestResolveCanonicalTypeName(t *testing.T) {
	s, _ := newFixtureSession(t)

	result := func(name string) (string, bool) {
		return s.ResolveCanonicalTypeName(method(t, s, name).ResultType())
	}
	param := func(name string, i int) (string, bool) {
		return s.ResolveCanonicalTypeName(method(t, s, name).ParamType(i))
	}

	tests := []struct {
		name   string
		got    func() (string, bool)
		want   string
		wantOK bool
	}{
		{"generic instance", func() (string, bool) { return result("FindAll") }, "PageUser", true},
		{"pointer", func() (string, bool) { return result("FindOne") }, "User", true},
		{"unwrap set", func() (string, bool) { return result("Create") }, "User", true},
		{"slice element", func() (string, bool) { return result("Batch") }, "User", true},
		{"alias name", func() (string, bool) { return result("Alias") }, "UserAlias", true},
		{"builtin collision", func() (string, bool) { return result("When") }, "Date_", true},
		{"map discarded", func() (string, bool) { return result("Tag") }, "", false},
		{"context discarded", func() (string, bool) { return param("FindAll", 0) }, "", false},
		{"basic discarded", func() (string, bool) { return param("FindOne", 1) }, "", false},
		{"unwrapped basic discarded", func() (string, bool) { return param("Batch", 1) }, "", false},
		{"named map", func() (string, bool) { return param("Tag", 1) }, "Labels", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.got()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	// Resolving twice hits the cache and agrees.
	again, ok := result("FindAll")
	assert.True(t, ok)
	assert.Equal(t, "PageUser", again)

	_, ok = s.ResolveCanonicalTypeName(nil)
	assert.False(t, ok)
}

func TestNewSession_TypeNameCollision(t *testing.T) {
	diags := diagnostic.NewCollector()
	pkgs := append(fixturePackages(),
		testutil.Source("example.com/app/billing", "billing", "user.go", "package billing\n\ntype User struct{ Cents int }\n"))
	s := testutil.NewSession(t, analyzer.Options{Diagnostics: diags}, pkgs...)

	collisions := diags.ByCategory(diagnostic.CategoryTypeCollision)
	require.Len(t, collisions, 2)
	assert.Equal(t, "User", collisions[0].Subject)
	assert.Equal(t, "declared in example.com/app/api and example.com/app/billing; using example.com/app/api", collisions[0].Message)
	assert.NotEmpty(t, collisions[0].Hint)
	assert.Equal(t, "UsersController", collisions[1].Subject)
	assert.Contains(t, collisions[1].Message, "example.com/app/legacy")

	typ, ok := s.LookupType("User")
	require.True(t, ok)
	named, ok := typ.(*types.Named)
	require.True(t, ok)
	assert.Equal(t, "example.com/app/api", named.Obj().Pkg().Path())
}

func TestLookupType(t *testing.T) {
	s, _ := newFixtureSession(t)

	_, ok := s.LookupType("User")
	assert.True(t, ok, "package-scope types are indexed")
	_, ok = s.LookupType("Date_")
	assert.True(t, ok, "indexed under the safe name")
	_, ok = s.LookupType("Page")
	assert.False(t, ok, "generic declarations are not indexed")

	_, ok = s.LookupType("PageUser")
	assert.False(t, ok)
	s.ResolveCanonicalTypeName(method(t, s, "FindAll").ResultType())
	_, ok = s.LookupType("PageUser")
	assert.True(t, ok, "instances are recorded once resolved")
}

func TestSession_Close(t *testing.T) {
	s, _ := newFixtureSession(t)
	m := method(t, s, "FindOne")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())

	_, err := s.ListControllerClasses("")
	assert.Error(t, err)
	_, ok := s.LookupType("User")
	assert.False(t, ok)
	_, ok = s.ResolveCanonicalTypeName(m.ResultType())
	assert.False(t, ok)
}

func TestSafeTSName(t *testing.T) {
	assert.Equal(t, "User", analyzer.SafeTSName("User"))
	assert.Equal(t, "Record_", analyzer.SafeTSName("Record"))
	assert.Equal(t, "ApiError_", analyzer.SafeTSName("ApiError"))
	assert.True(t, analyzer.IsBuiltinName("Partial"))
	assert.False(t, analyzer.IsBuiltinName("Partial_"))
}

func TestNormalizeTypeText(t *testing.T) {
	tests := map[string]string{
		"":                                   "",
		"string":                             "string",
		"int64":                              "number",
		"*api.User":                          "User",
		"[]github.com/acme/app/api.User":     "User[]",
		"map[string]int":                     "Record<string, number>",
		"[]byte":                             "string",
		"time.Time":                          "string",
		"api.Date":                           "Date_",
		"User":                               "User",
		"Partial<User>":                      "Partial<User>",
		"number":                             "number",
		"Page[User]":                         "PageUser",
		"api.Page[github.com/acme/api.User]": "PageUser",
		"*Page[[]User]":                      "PageUserList",
		"Pair[string, *api.User]":            "PairStringUser",
		"Page[map[string]User]":              "PageRecordUser",
		"Page[[2]User]":                      "PageUserList",
		"[]Page[Promise[User]]":              "PageUser[]",
		"Promise[api.User]":                  "User",
		"List[User]":                         "User[]",
		"Promise[List[User]]":                "User[]",
		"User[]":                             "User[]",
		"[4]int":                             "number[]",
	}
	for in, want := range tests {
		assert.Equal(t, want, analyzer.NormalizeTypeText(in), in)
	}
}

func TestOpen_LoadsModule(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}

	dir := t.TempDir()
	testutil.WriteModule(t, dir, "example.com/app", map[string]string{
		"api/models.go":           modelsSrc,
		"api/users_controller.go": controllerSrc,
	})

	s, err := analyzer.Open(context.Background(), analyzer.Options{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, s.Dir())

	ctrls, err := s.ListControllerClasses("**/*_controller.go")
	require.NoError(t, err)
	require.Contains(t, ctrls, "UsersController")

	m, ok := s.Method(ctrls["UsersController"], "FindAll")
	require.True(t, ok)
	assert.Equal(t, "PageUser", s.ReturnTypeText(m))
}

func TestOpen_ReportsTypeErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}

	dir := t.TempDir()
	testutil.WriteModule(t, dir, "example.com/broken", map[string]string{
		"api/api.go": "package api\n\nfunc Broken() int { return \"x\" }\n",
	})

	_, err := analyzer.Open(context.Background(), analyzer.Options{Dir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package error(s)")
}
