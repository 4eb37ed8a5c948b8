// ABOUTME: Lazily loaded, process-lifetime cache of the species corpus
// ABOUTME: Single-flight first load, atomic snapshot swap on reload

package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/nainya/redlist/pkg/document")

// DefaultCandidates are tried in order relative to the corpus root. The
// freshest pipeline output comes first, packaged legacy copies after it.
var DefaultCandidates = []string{
	filepath.Join("data", "data_files", "chunks.jsonl"),
	filepath.Join("src", "web-folder", "public", "assets", "preproccessed_data", "chunks.jsonl"),
	filepath.Join("public", "assets", "preproccessed_data", "chunks.jsonl"),
	filepath.Join("preproccessed_data", "chunks.jsonl"),
	filepath.Join("PreprocessingRAG", "preproccessed_data", "chunks.jsonl"),
}

// LoadObserver is notified after every corpus read.
type LoadObserver interface {
	ObserveCorpusLoad(path string, stats Stats, duration time.Duration, err error)
}

// CorpusOptions configures a Corpus.
type CorpusOptions struct {
	Root       string          // Directory the candidates are relative to
	Candidates []string        // Defaults to DefaultCandidates
	Logger     *zerolog.Logger // Defaults to a no-op logger
	Observer   LoadObserver    // Optional
}

// Snapshot is one immutable load of the corpus.
type Snapshot struct {
	Path      string      // Resolved file, "" when no candidate exists
	Documents []*Document // Documents in first-encounter order
	Stats     Stats
	LoadedAt  time.Time
}

// Corpus owns the document collection. The first caller of Documents reads
// the file; concurrent first callers share that single read and every later
// caller gets the cached snapshot without locking. Nothing is re-read until
// Reload or Reset is called.
type Corpus struct {
	root       string
	candidates []string
	log        zerolog.Logger
	observer   LoadObserver
	static     bool

	snap  atomic.Pointer[Snapshot]
	group singleflight.Group
}

// NewCorpus creates a corpus; no I/O happens until first access.
func NewCorpus(opts CorpusOptions) *Corpus {
	candidates := opts.Candidates
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "corpus").Logger()
	}
	return &Corpus{
		root:       opts.Root,
		candidates: candidates,
		log:        log,
		observer:   opts.Observer,
	}
}

// NewStaticCorpus wraps an already built collection. It never touches the
// filesystem; Reload keeps the same documents.
func NewStaticCorpus(docs []*Document) *Corpus {
	c := &Corpus{log: zerolog.Nop(), static: true}
	c.snap.Store(&Snapshot{
		Documents: docs,
		Stats:     Stats{Documents: len(docs)},
		LoadedAt:  time.Now(),
	})
	return c
}

// Documents returns the cached collection, loading it on first use.
// A missing corpus yields an empty collection, not an error.
func (c *Corpus) Documents(ctx context.Context) ([]*Document, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.Documents, nil
}

// Snapshot returns the current snapshot, loading it on first use. The
// shared first load is detached from the caller's cancellation so one
// cancelled caller cannot fail the others waiting on it.
func (c *Corpus) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s := c.snap.Load(); s != nil {
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do("load", func() (interface{}, error) {
		if s := c.snap.Load(); s != nil {
			return s, nil
		}
		s, err := c.read(loadCtx)
		if err != nil {
			return nil, err
		}
		c.snap.Store(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Reload re-reads the corpus and swaps the snapshot. Readers holding the
// previous collection keep using it. On error the previous snapshot stays.
func (c *Corpus) Reload(ctx context.Context) error {
	if c.static {
		return nil
	}
	_, err, _ := c.group.Do("reload", func() (interface{}, error) {
		s, err := c.read(ctx)
		if err != nil {
			return nil, err
		}
		c.snap.Store(s)
		return s, nil
	})
	return err
}

// Reset drops the cached snapshot; the next access loads again.
func (c *Corpus) Reset() {
	if c.static {
		return
	}
	c.snap.Store(nil)
}

// Loaded reports whether a snapshot is cached.
func (c *Corpus) Loaded() bool {
	return c.snap.Load() != nil
}

// Path resolves the corpus file without loading it.
func (c *Corpus) Path() string {
	if c.static {
		return ""
	}
	return ResolvePath(c.root, c.candidates)
}

func (c *Corpus) read(ctx context.Context) (_ *Snapshot, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "corpus.read")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	path := c.Path()
	span.SetAttributes(attribute.String("corpus.path", path))
	if path == "" {
		c.log.Warn().
			Str("root", c.root).
			Strs("candidates", c.candidates).
			Msg("No corpus file found, serving an empty collection")
		s := &Snapshot{Documents: []*Document{}, LoadedAt: time.Now()}
		c.observe("", s.Stats, time.Since(start), nil)
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open corpus %s: %w", path, err)
		c.observe(path, Stats{}, time.Since(start), err)
		return nil, err
	}
	defer f.Close()

	docs, stats, err := Aggregate(f)
	duration := time.Since(start)
	span.SetAttributes(
		attribute.Int("corpus.documents", stats.Documents),
		attribute.Int("corpus.fragments", stats.Fragments),
		attribute.Int("corpus.malformed", stats.Malformed),
	)
	c.observe(path, stats, duration, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus %s: %w", path, err)
	}

	c.log.Debug().
		Str("path", path).
		Int("lines", stats.Lines).
		Int("fragments", stats.Fragments).
		Int("malformed", stats.Malformed).
		Int("keyless", stats.Keyless).
		Int("documents", stats.Documents).
		Dur("duration_ms", duration).
		Msg("Corpus loaded")

	return &Snapshot{
		Path:      path,
		Documents: docs,
		Stats:     stats,
		LoadedAt:  time.Now(),
	}, nil
}

func (c *Corpus) observe(path string, stats Stats, d time.Duration, err error) {
	if c.observer != nil {
		c.observer.ObserveCorpusLoad(path, stats, d, err)
	}
}

// ResolvePath returns the first candidate that exists as a regular file.
// Relative candidates are joined to root; "" means none exists.
func ResolvePath(root string, candidates []string) string {
	for _, cand := range candidates {
		p := cand
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, cand)
		}
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}
