// ABOUTME: Query engine over the aggregated species corpus
// ABOUTME: Slug lookup and the filter, sort, paginate pipeline

package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nainya/redlist/pkg/document"
)

var tracer = otel.Tracer("github.com/nainya/redlist/pkg/query")

// DocumentSource supplies the immutable document collection.
// *document.Corpus implements it.
type DocumentSource interface {
	Documents(ctx context.Context) ([]*document.Document, error)
}

// SearchObserver is told about every completed search.
type SearchObserver interface {
	ObserveSearch(total, returned int, duration time.Duration)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSearchObserver attaches a search observer.
func WithSearchObserver(o SearchObserver) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine answers read queries against a DocumentSource. It holds no state of
// its own, so one Engine can serve any number of concurrent callers.
type Engine struct {
	src      DocumentSource
	observer SearchObserver
}

// NewEngine creates a new query engine
func NewEngine(src DocumentSource, opts ...EngineOption) *Engine {
	e := &Engine{src: src}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Count returns the number of documents in the collection.
func (e *Engine) Count(ctx context.Context) (int, error) {
	docs, err := e.src.Documents(ctx)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// GetBySlug finds a document by slug, ignoring case. When two documents
// share a slug the first in collection order wins.
func (e *Engine) GetBySlug(ctx context.Context, slug string) (*document.Document, error) {
	if slug == "" {
		return nil, ErrNotFound
	}
	docs, err := e.src.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	want := strings.ToLower(slug)
	for _, d := range docs {
		if d.Slug == want {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

// Related returns up to limit documents other than the one with the given
// slug, in collection order.
func (e *Engine) Related(ctx context.Context, slug string, limit int) ([]*document.Document, error) {
	doc, err := e.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	docs, err := e.src.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	related := make([]*document.Document, 0, limit)
	for _, d := range docs {
		if len(related) >= limit {
			break
		}
		if d.Slug != doc.Slug {
			related = append(related, d)
		}
	}
	return related, nil
}

// Search filters, sorts and paginates the collection. Facets combine with
// AND; values within the status and source facets combine with OR.
func (e *Engine) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	ctx, span := tracer.Start(ctx, "query.search", trace.WithAttributes(
		attribute.String("query.sort", string(opts.Sort)),
		attribute.Int("query.page", opts.Page),
		attribute.Int("query.page_size", opts.PageSize),
	))
	defer span.End()

	start := time.Now()

	docs, err := e.src.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	matched := filterDocuments(docs, newFilter(opts))
	sortDocuments(matched, opts.Sort)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size == 0 {
		size = DefaultPageSize
	}
	size = ClampPageSize(size)

	result := &SearchResult{
		Items:    paginate(matched, page, size),
		Total:    len(matched),
		Page:     page,
		PageSize: size,
	}

	span.SetAttributes(
		attribute.Int("query.total", result.Total),
		attribute.Int("query.returned", len(result.Items)),
	)
	if e.observer != nil {
		e.observer.ObserveSearch(result.Total, len(result.Items), time.Since(start))
	}
	return result, nil
}

// filter is SearchOptions with every value pre-normalized.
type filter struct {
	text     string
	statuses map[string]struct{}
	hasImage *bool
	sources  []string
}

func newFilter(opts SearchOptions) filter {
	f := filter{hasImage: opts.HasImage}

	if q := strings.TrimSpace(opts.Query); q != "" {
		f.text = document.Fold(q)
	}
	for _, s := range opts.Statuses {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if f.statuses == nil {
			f.statuses = make(map[string]struct{})
		}
		f.statuses[s] = struct{}{}
	}
	for _, s := range opts.Sources {
		if s = strings.TrimSpace(s); s != "" {
			f.sources = append(f.sources, document.Fold(s))
		}
	}
	return f
}

func (f filter) match(d *document.Document) bool {
	if f.text != "" {
		body := d.TextPreview
		if body == "" {
			body = d.Text
		}
		if !strings.Contains(document.Fold(d.DocID), f.text) &&
			!strings.Contains(document.Fold(body), f.text) {
			return false
		}
	}

	if f.statuses != nil {
		if _, ok := f.statuses[strings.ToUpper(string(d.IUCNStatus))]; !ok {
			return false
		}
	}

	if f.hasImage != nil && d.HasImage() != *f.hasImage {
		return false
	}

	if len(f.sources) > 0 && !anySourceMatches(d.Source, f.sources) {
		return false
	}

	return true
}

func anySourceMatches(have, want []string) bool {
	for _, h := range have {
		fh := document.Fold(h)
		for _, w := range want {
			if fh == w {
				return true
			}
		}
	}
	return false
}

// filterDocuments always returns a fresh slice so sorting never reorders
// the shared collection.
func filterDocuments(docs []*document.Document, f filter) []*document.Document {
	out := make([]*document.Document, 0, len(docs))
	for _, d := range docs {
		if f.match(d) {
			out = append(out, d)
		}
	}
	return out
}

// paginate slices one 1-based page; out-of-range pages are empty.
func paginate(items []*document.Document, page, size int) []*document.Document {
	if page-1 > len(items)/size {
		return []*document.Document{}
	}
	return applyPagination(items, size, (page-1)*size)
}

func applyPagination[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}

	start := offset
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}

	return items[start:end]
}
