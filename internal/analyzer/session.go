// Package analyzer loads controller packages with go/packages and answers the
// type questions the route analyzer and the schema deriver ask about them.
package analyzer

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/tsgonest/clientgen/internal/diagnostic"
)

// DefaultSuffix is the naming convention that marks a type as a controller.
const DefaultSuffix = "Controller"

// defaultCacheSize bounds the canonical-name memo of one session.
const defaultCacheSize = 4096

const loadMode = packages.NeedName | packages.NeedTypes | packages.NeedSyntax |
	packages.NeedTypesInfo | packages.NeedFiles

// Options configures a Session.
type Options struct {
	// Dir is the project directory; controller globs are relative to it.
	Dir string
	// Patterns are the go/packages load patterns. Defaults to "./...".
	Patterns []string
	// Tags are build tags passed to the go command.
	Tags []string
	// Exclude lists globs of files never searched for controllers.
	Exclude []string
	// Suffix is the controller naming convention. Defaults to "Controller".
	Suffix string
	// Unwrap lists generic container names whose first type argument stands
	// in for the container. Defaults to DefaultUnwrap.
	Unwrap []string
	// CacheSize bounds the canonical-name cache.
	CacheSize int

	Logger      *zap.SugaredLogger
	Diagnostics *diagnostic.Collector
}

// Session is one loaded package graph plus the caches built over it. It is
// acquired per run and released with Close.
type Session struct {
	opts   Options
	pkgs   []*packages.Package
	fset   *token.FileSet
	logger *zap.SugaredLogger

	unwrap    map[string]bool
	canon     *lru.Cache[types.Type, canonicalEntry]
	byName    map[string]types.Type
	docs      map[*types.TypeName]string
	fieldDocs map[token.Pos]string
	enums     map[*types.TypeName][]*types.Const

	closed bool
}

var _ Provider = (*Session)(nil)

// Open loads the packages under opts.Dir and returns a session over them.
// Any package load or type error fails the whole open.
func Open(ctx context.Context, opts Options) (*Session, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving project dir %q", dir)
	}
	opts.Dir = abs

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     abs,
	}
	if len(opts.Tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.Tags, ",")}
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrapf(err, "loading packages %v", patterns)
	}

	var loadErrs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
	}
	if len(loadErrs) > 0 {
		err := errors.Newf("%d package error(s):\n  %s", len(loadErrs), strings.Join(loadErrs, "\n  "))
		return nil, errors.WithHint(err, "the controller packages must type-check before a client can be generated")
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages matched %v in %s", patterns, abs)
	}

	return NewSession(pkgs, opts)
}

// NewSession builds a session over already-loaded packages. Every package
// must carry Types, Syntax, TypesInfo and Fset.
func NewSession(pkgs []*packages.Package, opts Options) (*Session, error) {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if len(opts.Unwrap) == 0 {
		opts.Unwrap = DefaultUnwrap
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	canon, err := lru.New[types.Type, canonicalEntry](opts.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating canonical name cache")
	}

	sorted := make([]*packages.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p == nil || p.Types == nil {
			continue
		}
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PkgPath < sorted[j].PkgPath })

	s := &Session{
		opts:      opts,
		pkgs:      sorted,
		logger:    logger,
		unwrap:    make(map[string]bool, len(opts.Unwrap)),
		canon:     canon,
		byName:    make(map[string]types.Type),
		docs:      make(map[*types.TypeName]string),
		fieldDocs: make(map[token.Pos]string),
		enums:     make(map[*types.TypeName][]*types.Const),
	}
	for _, name := range opts.Unwrap {
		s.unwrap[name] = true
	}
	for _, p := range sorted {
		if s.fset == nil {
			s.fset = p.Fset
		}
		s.indexPackage(p)
	}
	if s.fset == nil {
		s.fset = token.NewFileSet()
	}

	logger.Debugw("analyzer session ready", "packages", len(sorted), "types", len(s.byName))
	return s, nil
}

func declaringPackage(t types.Type) string {
	if named, ok := t.(*types.Named); ok && named.Obj().Pkg() != nil {
		return named.Obj().Pkg().Path()
	}
	return t.String()
}

// indexPackage records doc comments, typed constants and package-scope type
// names so later lookups never rescan syntax.
func (s *Session) indexPackage(p *packages.Package) {
	for _, file := range p.Syntax {
		ast.Inspect(file, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.GenDecl:
				if n.Tok != token.TYPE || p.TypesInfo == nil {
					return true
				}
				for _, spec := range n.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					doc := ts.Doc
					if doc == nil && len(n.Specs) == 1 {
						doc = n.Doc
					}
					if tn, ok := p.TypesInfo.Defs[ts.Name].(*types.TypeName); ok && doc != nil {
						s.docs[tn] = strings.TrimSpace(doc.Text())
					}
				}
			case *ast.StructType:
				for _, field := range n.Fields.List {
					doc := field.Doc
					if doc == nil {
						doc = field.Comment
					}
					if doc == nil {
						continue
					}
					for _, name := range field.Names {
						s.fieldDocs[name.Pos()] = strings.TrimSpace(doc.Text())
					}
				}
			}
			return true
		})
	}

	scope := p.Types.Scope()
	for _, name := range scope.Names() {
		switch obj := scope.Lookup(name).(type) {
		case *types.TypeName:
			if named, ok := obj.Type().(*types.Named); ok && named.TypeParams().Len() > 0 {
				continue
			}
			key := SafeTSName(name)
			prev, taken := s.byName[key]
			if !taken {
				s.byName[key] = obj.Type()
				continue
			}
			if !types.Identical(prev, obj.Type()) {
				kept := declaringPackage(prev)
				s.opts.Diagnostics.WarnWithHint(diagnostic.CategoryTypeCollision, key,
					"declared in "+kept+" and "+p.PkgPath+"; using "+kept,
					"rename one of the types so references by name resolve unambiguously")
			}
		case *types.Const:
			named, ok := obj.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, basic := named.Underlying().(*types.Basic); basic {
				s.enums[named.Obj()] = append(s.enums[named.Obj()], obj)
			}
		}
	}
	for tn, consts := range s.enums {
		sort.Slice(consts, func(i, j int) bool { return consts[i].Pos() < consts[j].Pos() })
		s.enums[tn] = consts
	}
}

// ListControllerClasses returns the controllers declared in files matching
// pattern. pattern may hold several comma-separated globs; an empty pattern
// matches every file.
func (s *Session) ListControllerClasses(pattern string) (map[string]*Controller, error) {
	if s.closed {
		return nil, errors.New("analyzer session is closed")
	}

	include := splitPatterns(pattern)
	out := make(map[string]*Controller)
	for _, p := range s.pkgs {
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			if !strings.HasSuffix(name, s.opts.Suffix) {
				continue
			}
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 {
				continue
			}
			file := s.relFile(tn.Pos())
			if !s.selected(file, include) {
				continue
			}

			ctrl := s.buildController(p.PkgPath, tn, named, file)
			if prev, dup := out[name]; dup {
				keep, drop := prev, ctrl
				if ctrl.File < prev.File {
					keep, drop = ctrl, prev
				}
				s.opts.Diagnostics.WarnWithHint(diagnostic.CategoryControllerDuplicate, name,
					"declared in "+keep.File+" and "+drop.File+"; using "+keep.File,
					"rename one of the controllers so routes resolve unambiguously")
				out[name] = keep
				continue
			}
			out[name] = ctrl
		}
	}
	return out, nil
}

// selected applies the controller globs, or every file when there are none,
// minus Options.Exclude.
func (s *Session) selected(file string, include []string) bool {
	if len(include) == 0 {
		include = []string{"**"}
	}
	return MatchesGlob(s.opts.Dir, file, include, s.opts.Exclude)
}

func (s *Session) buildController(pkgPath string, tn *types.TypeName, named *types.Named, file string) *Controller {
	ctrl := &Controller{Name: tn.Name(), PkgPath: pkgPath, File: file, Obj: tn, pos: tn.Pos()}
	ms := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < ms.Len(); i++ {
		sel := ms.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		sig, ok := sel.Type().(*types.Signature)
		if !ok {
			continue
		}
		ctrl.methods = append(ctrl.methods, &Method{Controller: ctrl, Name: fn.Name(), Func: fn, Signature: sig})
	}
	return ctrl
}

// Method finds a handler by name. An exact match wins; otherwise a
// case-insensitive match lets hosts report "findAll" for FindAll.
func (s *Session) Method(ctrl *Controller, name string) (*Method, bool) {
	if ctrl == nil {
		return nil, false
	}
	for _, m := range ctrl.methods {
		if m.Name == name {
			return m, true
		}
	}
	for _, m := range ctrl.methods {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return nil, false
}

// ParameterTypeText renders parameter index of m as TypeScript type text.
func (s *Session) ParameterTypeText(m *Method, index int) string {
	t := m.ParamType(index)
	if t == nil || s.closed {
		return ""
	}
	return s.TypeText(t)
}

// ReturnTypeText renders the result of m; handlers without a non-error
// result return "void".
func (s *Session) ReturnTypeText(m *Method) string {
	t := m.ResultType()
	if t == nil || s.closed {
		return "void"
	}
	return s.TypeText(t)
}

// LookupType returns the type registered under a canonical name.
func (s *Session) LookupType(name string) (types.Type, bool) {
	if s.closed {
		return nil, false
	}
	t, ok := s.byName[name]
	return t, ok
}

// Doc returns the doc comment of a declared type.
func (s *Session) Doc(tn *types.TypeName) string {
	return s.docs[tn]
}

// FieldDoc returns the doc or line comment of a struct field.
func (s *Session) FieldDoc(v *types.Var) string {
	return s.fieldDocs[v.Pos()]
}

// EnumValues returns the typed constants declared for a named basic type,
// in declaration order.
func (s *Session) EnumValues(tn *types.TypeName) []*types.Const {
	return s.enums[tn]
}

// Dir returns the absolute project directory.
func (s *Session) Dir() string {
	return s.opts.Dir
}

// Close releases the loaded packages and caches. It is safe to call more
// than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.canon.Purge()
	s.pkgs = nil
	s.byName = nil
	s.docs = nil
	s.fieldDocs = nil
	s.enums = nil
	s.logger.Debug("analyzer session closed")
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed
}

func (s *Session) relFile(pos token.Pos) string {
	filename := s.fset.Position(pos).Filename
	return relativeSlashPath(s.opts.Dir, filename)
}

func splitPatterns(pattern string) []string {
	var out []string
	for _, p := range strings.Split(pattern, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
