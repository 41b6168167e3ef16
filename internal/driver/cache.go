package driver

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"codescope/internal/diag"
)

// Digest is a 256-bit blake3 hash, the same width as source.File.Hash.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// bump when cacheEntry or any view changes shape
const cacheSchemaVersion uint16 = 1

// cacheEntry is what a finished run leaves behind: its views, encoded, and
// its diagnostics. Raw stage outputs are not kept.
type cacheEntry struct {
	Schema      uint16
	Tasks       []string
	Views       map[string]msgpack.RawMessage
	Diagnostics []diag.Diagnostic
	Dropped     int
}

// Cache reuses the report of a previous run over identical input. Entries
// live in memory and, when a directory is set, on disk as msgpack files.
// Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	mem map[Digest]*cacheEntry
	dir string
}

// NewCache creates a cache; an empty dir keeps entries in memory only.
func NewCache(dir string) *Cache {
	return &Cache{mem: make(map[Digest]*cacheEntry), dir: dir}
}

// DefaultCacheDir returns $XDG_CACHE_HOME/codescope or ~/.cache/codescope.
func DefaultCacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "codescope"), nil
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "runs", key.String()+".mp")
}

// Get returns the entry for key. Disk entries with another schema and
// unreadable files count as misses.
func (c *Cache) Get(key Digest) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return e, true
	}
	if c.dir == "" {
		return nil, false
	}
	e, err := c.load(key)
	if err != nil || e == nil {
		return nil, false
	}
	c.mu.Lock()
	c.mem[key] = e
	c.mu.Unlock()
	return e, true
}

func (c *Cache) load(key Digest) (e *cacheEntry, err error) {
	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	var out cacheEntry
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, err
	}
	if out.Schema != cacheSchemaVersion {
		return nil, nil
	}
	return &out, nil
}

// Put stores an entry in memory and, when configured, on disk. The file is
// written to a temporary name and renamed into place.
func (c *Cache) Put(key Digest, e *cacheEntry) error {
	if c == nil || e == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[key] = e
	if c.dir == "" {
		return nil
	}

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(e); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// атомарная замена
	return os.Rename(tmp, p)
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

func newCacheEntry(res *Result) *cacheEntry {
	e := &cacheEntry{
		Schema:      cacheSchemaVersion,
		Tasks:       slices.Clone(res.Tasks),
		Views:       make(map[string]msgpack.RawMessage, len(res.views)),
		Diagnostics: slices.Clone(res.Diagnostics),
		Dropped:     res.Dropped,
	}
	for name, v := range res.views {
		raw, err := msgpack.Marshal(v)
		if err != nil {
			// a view that cannot be stored makes the entry useless
			return nil
		}
		e.Views[name] = raw
	}
	return e
}

// result rebuilds a Result over prog from a cached entry.
func (e *cacheEntry) result(prog *Program) (*Result, error) {
	res := &Result{
		RunID:       uuid.NewString(),
		Tasks:       slices.Clone(e.Tasks),
		Program:     prog,
		Diagnostics: slices.Clone(e.Diagnostics),
		Dropped:     e.Dropped,
		Cached:      true,
		views:       make(map[string]View, len(e.Views)),
	}
	for name, raw := range e.Views {
		t, ok := LookupTask(name)
		if !ok {
			return nil, fmt.Errorf("cache entry holds unknown view %q", name)
		}
		v := t.blank()
		if err := msgpack.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("failed to decode cached %s view: %w", name, err)
		}
		res.views[name] = v
	}
	return res, nil
}

// cacheKey digests everything a report depends on: module keys, paths and
// content hashes in key order, the selected tasks and the options that
// change findings. Jobs and collaborators are left out; results do not
// depend on them.
func cacheKey(prog *Program, tasks []string, opts Options) Digest {
	h := blake3.New()
	str := func(s string) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(s))
	}
	num := func(v int64) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(v)) // #nosec G115 -- bit pattern only
		_, _ = h.Write(n[:])
	}
	num(int64(cacheSchemaVersion))
	num(int64(len(prog.Modules)))
	for _, m := range prog.Modules {
		str(m.Key)
		str(m.Path)
		f := prog.Files.Get(m.File)
		_, _ = h.Write(f.Hash[:])
	}
	num(int64(len(tasks)))
	for _, t := range tasks {
		str(t)
	}
	num(int64(opts.FunctionTimeout))
	num(int64(opts.MaxSteps))
	num(int64(opts.MaxDiagnostics))
	num(int64(opts.Thresholds.MaxCyclomatic))
	num(int64(opts.Thresholds.MaxNesting))
	num(int64(opts.Thresholds.MaxFanOut))
	disabled := slices.Clone(opts.LintDisable)
	slices.Sort(disabled)
	num(int64(len(disabled)))
	for _, d := range disabled {
		str(d)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
