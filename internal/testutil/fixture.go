// Package testutil builds analyzer inputs from inline Go source so tests can
// type-check controller fixtures without running the go command.
package testutil

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"github.com/tsgonest/clientgen/internal/analyzer"
)

// FixtureRoot is the directory inline fixtures pretend to live under.
const FixtureRoot = "/fixture"

// Package is one inline fixture package.
type Package struct {
	// Path is the import path.
	Path string
	// Dir is the package directory relative to FixtureRoot.
	Dir string
	// Files maps file names to Go source.
	Files map[string]string
}

// Source is a single-file fixture package.
func Source(path, dir, file, src string) Package {
	return Package{Path: path, Dir: dir, Files: map[string]string{file: src}}
}

// fixtureImporter resolves fixture packages first and the standard library
// from GOROOT sources otherwise.
type fixtureImporter struct {
	local    map[string]*types.Package
	fallback types.Importer
}

func (i *fixtureImporter) Import(path string) (*types.Package, error) {
	if p, ok := i.local[path]; ok {
		return p, nil
	}
	return i.fallback.Import(path)
}

// LoadPackages parses and type-checks the fixtures in order; a package may
// import any fixture listed before it.
func LoadPackages(t testing.TB, pkgs ...Package) []*packages.Package {
	t.Helper()

	fset := token.NewFileSet()
	imp := &fixtureImporter{
		local:    make(map[string]*types.Package),
		fallback: importer.ForCompiler(fset, "source", nil),
	}

	var out []*packages.Package
	for _, p := range pkgs {
		names := make([]string, 0, len(p.Files))
		for name := range p.Files {
			names = append(names, name)
		}
		sort.Strings(names)

		var files []*ast.File
		var goFiles []string
		for _, name := range names {
			filename := filepath.Join(FixtureRoot, p.Dir, name)
			f, err := parser.ParseFile(fset, filename, p.Files[name], parser.ParseComments)
			require.NoError(t, err, "parsing fixture %s", filename)
			files = append(files, f)
			goFiles = append(goFiles, filename)
		}

		info := &types.Info{
			Types:      make(map[ast.Expr]types.TypeAndValue),
			Defs:       make(map[*ast.Ident]types.Object),
			Uses:       make(map[*ast.Ident]types.Object),
			Implicits:  make(map[ast.Node]types.Object),
			Selections: make(map[*ast.SelectorExpr]*types.Selection),
			Scopes:     make(map[ast.Node]*types.Scope),
			Instances:  make(map[*ast.Ident]types.Instance),
		}
		conf := types.Config{Importer: imp}
		tpkg, err := conf.Check(p.Path, fset, files, info)
		require.NoError(t, err, "type-checking fixture %s", p.Path)
		imp.local[p.Path] = tpkg

		out = append(out, &packages.Package{
			ID:              p.Path,
			Name:            tpkg.Name(),
			PkgPath:         p.Path,
			GoFiles:         goFiles,
			CompiledGoFiles: goFiles,
			Types:           tpkg,
			Syntax:          files,
			TypesInfo:       info,
			Fset:            fset,
		})
	}
	return out
}

// NewSession loads the fixtures and opens an analyzer session rooted at
// FixtureRoot. The session is closed when the test ends.
func NewSession(t testing.TB, opts analyzer.Options, pkgs ...Package) *analyzer.Session {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = FixtureRoot
	}
	s, err := analyzer.NewSession(LoadPackages(t, pkgs...), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// WriteModule writes a Go module with the given files (paths relative to
// dir) for tests that exercise the real package loader.
func WriteModule(t testing.TB, dir, module string, files map[string]string) {
	t.Helper()
	gomod := "module " + module + "\n\ngo 1.22\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644))
	for name, src := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
}
