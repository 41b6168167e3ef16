package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/lexer"
	"codescope/internal/parser"
	"codescope/internal/source"
	"codescope/internal/token"
	"codescope/internal/trace"
)

// LoadOptions control how sources become a Program.
type LoadOptions struct {
	Jobs           int
	MaxDiagnostics int // 0 = unlimited
	// MaxErrors stops reporting syntax errors of one file after that many.
	MaxErrors uint
	TabWidth  int
	// Exclude skips files and directories by their slash path relative to
	// the root.
	Exclude func(rel string) bool
	Logger  *slog.Logger
}

// Source is an in-memory module; Path is relative to an imaginary root.
type Source struct {
	Path string
	Text string
}

// slot собирает всё, что известно об одном файле до построения дерева
type slot struct {
	rel     string
	abs     string
	key     string
	pkg     bool
	content []byte
	flags   source.FileFlags
	file    source.FileID
	toks    []token.Token
	bag     *diag.Bag
}

// Load reads a file or a directory tree of *.py files. A missing path or a
// tree without sources is a ConfigurationError.
func Load(ctx context.Context, root string, opts LoadOptions) (*Program, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Path: root, Err: fmt.Errorf("%w: %w", ErrMissingInput, err)}
		}
		return nil, fmt.Errorf("failed to stat %q: %w", root, err)
	}

	var slots []*slot
	base := root
	if info.IsDir() {
		rels, err := listSources(root, opts.Exclude)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			slots = append(slots, &slot{rel: rel, abs: filepath.Join(root, filepath.FromSlash(rel))})
		}
	} else {
		base = filepath.Dir(root)
		slots = append(slots, &slot{rel: filepath.Base(root), abs: root})
	}
	if len(slots) == 0 {
		return nil, &ConfigurationError{Path: root, Err: fmt.Errorf("%w: no Python sources", ErrMissingInput)}
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", base, err)
	}
	slots = assignKeys(slots, filepath.Base(absBase), opts.Logger)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Чтение файлов параллельно, каждая горутина пишет только в свой слот
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(slots)))
	for _, s := range slots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// #nosec G304 -- paths come from walking the user-given root
			data, err := os.ReadFile(s.abs)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", s.rel, err)
			}
			s.content, s.flags = source.Prepare(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := source.NewFileSetWithBase(base)
	for _, s := range slots {
		s.file = files.Add(s.abs, s.content, s.flags)
	}
	return build(ctx, base, files, slots, opts)
}

// NewProgram builds a Program from in-memory sources, for tests and stdin.
func NewProgram(ctx context.Context, srcs []Source, opts LoadOptions) (*Program, error) {
	if len(srcs) == 0 {
		return nil, &ConfigurationError{Err: fmt.Errorf("%w: no sources", ErrMissingInput)}
	}
	slots := make([]*slot, len(srcs))
	for i, src := range srcs {
		slots[i] = &slot{rel: filepath.ToSlash(src.Path), content: []byte(src.Text)}
	}
	slots = assignKeys(slots, "main", opts.Logger)
	files := source.NewFileSet()
	for _, s := range slots {
		s.file = files.AddVirtual(s.rel, s.content)
	}
	return build(ctx, "", files, slots, opts)
}

// build tokenizes every slot in parallel and then parses them one by one in
// key order into a single builder, so node IDs do not depend on scheduling.
func build(ctx context.Context, root string, files *source.FileSet, slots []*slot, opts LoadOptions) (*Program, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	tracer := trace.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(slots)))
	for _, s := range slots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.bag = diag.NewBag(opts.MaxDiagnostics)
			s.toks = lexer.Tokenize(files.Get(s.file), lexer.Options{
				Reporter: diag.BagReporter{Bag: s.bag},
				TabWidth: opts.TabWidth,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var size uint
	for _, s := range slots {
		size += uint(len(s.toks))
	}
	prog := &Program{
		Root:        root,
		Files:       files,
		Builder:     ast.NewBuilder(ast.Hints{Nodes: size}, nil),
		Modules:     make([]Module, 0, len(slots)),
		Diagnostics: diag.NewBag(opts.MaxDiagnostics),
		byKey:       make(map[string]int, len(slots)),
	}
	rep := diag.BagReporter{Bag: prog.Diagnostics}
	parent := trace.CurrentSpan(ctx)
	for _, s := range slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		span := trace.Begin(tracer, trace.ScopeModule, "module:"+s.key, parent)
		prog.Diagnostics.Merge(s.bag)
		res := parser.ParseFile(prog.Builder, files.Get(s.file), s.key, s.toks, parser.Options{
			MaxErrors: opts.MaxErrors,
			Reporter:  rep,
		})
		span.WithExtra("tokens", strconv.Itoa(len(s.toks))).End("")
		s.toks = nil

		prog.byKey[s.key] = len(prog.Modules)
		prog.Modules = append(prog.Modules, Module{
			Key:     s.key,
			Path:    files.Get(s.file).Path,
			File:    s.file,
			Node:    res.Module,
			Package: s.pkg,
		})
	}
	return prog, nil
}

// assignKeys computes module keys, sorts by key and drops shadowed
// duplicates: a package __init__ wins over a same-named module file, as it
// does at import time.
func assignKeys(slots []*slot, rootName string, log *slog.Logger) []*slot {
	for _, s := range slots {
		s.key, s.pkg = ModuleKey(s.rel, rootName)
	}
	slices.SortStableFunc(slots, func(a, b *slot) int {
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}
		if a.pkg != b.pkg {
			if a.pkg {
				return -1
			}
			return 1
		}
		return strings.Compare(a.rel, b.rel)
	})
	out := slots[:0]
	for _, s := range slots {
		if n := len(out); n > 0 && out[n-1].key == s.key {
			if log != nil {
				log.Warn("module shadowed", slog.String("module", s.key),
					slog.String("kept", out[n-1].rel), slog.String("skipped", s.rel))
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// listSources возвращает отсортированный список *.py файлов относительно
// root. Скрытые каталоги и __pycache__ пропускаются.
func listSources(root string, exclude func(string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || name == "__pycache__" || (exclude != nil && exclude(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(rel, ".py") && (exclude == nil || !exclude(rel)) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	slices.Sort(files)
	return files, nil
}
