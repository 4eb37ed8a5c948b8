// ABOUTME: Tests for the query engine
// ABOUTME: Covers lookup, facets, sorting and pagination boundaries

package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nainya/redlist/pkg/document"
)

func newDoc(id string, status document.Status, image string) *document.Document {
	return &document.Document{
		DocID:       id,
		Slug:        document.ToSlug(id),
		Source:      []string{},
		Pages:       []int{},
		ChunkIDs:    []string{},
		Text:        id,
		TextPreview: id,
		ImageURL:    image,
		IUCNStatus:  status,
	}
}

func newTestEngine(docs ...*document.Document) *Engine {
	return NewEngine(document.NewStaticCorpus(docs))
}

func docIDs(docs []*document.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	return ids
}

type failingSource struct{}

func (failingSource) Documents(context.Context) ([]*document.Document, error) {
	return nil, errors.New("disk on fire")
}

type searchRecorder struct {
	mu    sync.Mutex
	calls []int
}

func (r *searchRecorder) ObserveSearch(total, returned int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, total, returned)
}

func TestGetBySlug(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(
		newDoc("Saola", document.StatusCR, ""),
		newDoc("Sơn Dương", document.StatusVU, ""),
	)

	doc, err := engine.GetBySlug(ctx, "SAOLA")
	require.NoError(t, err)
	assert.Equal(t, "Saola", doc.DocID)

	doc, err = engine.GetBySlug(ctx, "son-duong")
	require.NoError(t, err)
	assert.Equal(t, "Sơn Dương", doc.DocID)

	_, err = engine.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = engine.GetBySlug(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBySlug_CollisionFirstWins(t *testing.T) {
	engine := newTestEngine(
		newDoc("Saola", document.StatusCR, ""),
		newDoc("saola!", document.StatusEN, ""),
	)

	doc, err := engine.GetBySlug(context.Background(), "saola")
	require.NoError(t, err)
	assert.Equal(t, "Saola", doc.DocID)
}

func TestSearch_EmptyCollection(t *testing.T) {
	engine := newTestEngine()

	res, err := engine.Search(context.Background(), SearchOptions{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, DefaultPageSize, res.PageSize)
}

func TestSearch_SourceError(t *testing.T) {
	engine := NewEngine(failingSource{})

	_, err := engine.Search(context.Background(), SearchOptions{})
	assert.ErrorContains(t, err, "disk on fire")

	_, err = engine.GetBySlug(context.Background(), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSearch_Pagination(t *testing.T) {
	docs := make([]*document.Document, 25)
	for i := range docs {
		docs[i] = newDoc(fmt.Sprintf("species %02d", i), "", "")
	}
	engine := newTestEngine(docs...)
	ctx := context.Background()

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantLen   int
		wantFirst string
		wantPage  int
		wantSize  int
	}{
		{"first page", 1, 12, 12, "species 00", 1, 12},
		{"last partial page", 3, 12, 1, "species 24", 3, 12},
		{"past the end", 4, 12, 0, "", 4, 12},
		{"zero size uses default", 1, 0, 12, "species 00", 1, DefaultPageSize},
		{"oversized is clamped", 1, 500, 25, "species 00", 1, MaxPageSize},
		{"negative size is clamped", 2, -3, 1, "species 01", 2, 1},
		{"page below one", 0, 10, 10, "species 00", 1, 10},
		{"huge page", math.MaxInt, 50, 0, "", math.MaxInt, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Search(ctx, SearchOptions{Page: tt.page, PageSize: tt.pageSize})
			require.NoError(t, err)
			assert.Equal(t, 25, res.Total)
			assert.Len(t, res.Items, tt.wantLen)
			assert.Equal(t, tt.wantPage, res.Page)
			assert.Equal(t, tt.wantSize, res.PageSize)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, res.Items[0].DocID)
			}
		})
	}
}

func TestSearch_FacetsComposeWithAnd(t *testing.T) {
	engine := newTestEngine(
		newDoc("one", document.StatusEN, "a"),
		newDoc("two", document.StatusEN, ""),
		newDoc("three", document.StatusVU, "b"),
	)

	opts := NewQueryBuilder().Status("EN").HasImage(true).Build()
	res, err := engine.Search(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, docIDs(res.Items))
	assert.Equal(t, 1, res.Total)
}

func TestSearch_StatusFacet(t *testing.T) {
	engine := newTestEngine(
		newDoc("one", document.StatusEN, ""),
		newDoc("two", document.StatusCR, ""),
		newDoc("three", "", ""),
	)
	ctx := context.Background()

	res, err := engine.Search(ctx, SearchOptions{Statuses: []string{" en ", "cr"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, docIDs(res.Items))

	res, err = engine.Search(ctx, SearchOptions{Statuses: []string{}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	res, err = engine.Search(ctx, SearchOptions{Statuses: []string{"", "  "}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total, "blank codes impose no constraint")
}

func TestSearch_ImageFacet(t *testing.T) {
	engine := newTestEngine(
		newDoc("with", "", "x.jpg"),
		newDoc("without", "", ""),
	)
	ctx := context.Background()

	res, err := engine.Search(ctx, NewQueryBuilder().HasImage(false).Build())
	require.NoError(t, err)
	assert.Equal(t, []string{"without"}, docIDs(res.Items))

	res, err = engine.Search(ctx, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestSearch_SourceFacet(t *testing.T) {
	a := newDoc("a", "", "")
	a.Source = []string{"Sách Đỏ"}
	b := newDoc("b", "", "")
	b.Source = []string{"wiki", "book"}
	c := newDoc("c", "", "")
	engine := newTestEngine(a, b, c)
	ctx := context.Background()

	res, err := engine.Search(ctx, SearchOptions{Sources: []string{"BOOK", "atlas"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, docIDs(res.Items))

	res, err = engine.Search(ctx, SearchOptions{Sources: []string{"sach đo", "wiki"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, docIDs(res.Items))
}

func TestSearch_TextFilter(t *testing.T) {
	son := newDoc("Sơn Dương", document.StatusVU, "")
	son.TextPreview = "Capricornis milneedwardsii"
	son.Text = son.TextPreview
	saola := newDoc("Saola", document.StatusCR, "")
	saola.TextPreview = "Pseudoryx nghetinhensis, found in the Annamite range"
	saola.Text = saola.TextPreview
	bare := newDoc("Bare", "", "")
	bare.TextPreview = ""
	bare.Text = "Only the full text mentions Annamite"
	engine := newTestEngine(son, saola, bare)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"  son duong ", []string{"Sơn Dương"}},
		{"SƠN", []string{"Sơn Dương"}},
		{"milneedwardsii", []string{"Sơn Dương"}},
		{"annamite", []string{"Saola", "Bare"}},
		{"", []string{"Sơn Dương", "Saola", "Bare"}},
		{"   ", []string{"Sơn Dương", "Saola", "Bare"}},
		{"tiger", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := engine.Search(ctx, SearchOptions{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, docIDs(res.Items))
		})
	}
}

func TestSearch_SortName(t *testing.T) {
	docs := []*document.Document{
		newDoc("Saola", "", ""),
		newDoc("antelope", "", ""),
		newDoc("Bear", "", ""),
	}
	engine := newTestEngine(docs...)

	res, err := engine.Search(context.Background(), SearchOptions{Sort: SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"antelope", "Bear", "Saola"}, docIDs(res.Items))

	assert.Equal(t, []string{"Saola", "antelope", "Bear"}, docIDs(docs), "collection order must not change")
}

func TestSearch_SortNewest(t *testing.T) {
	none := newDoc("none", "", "")
	ten := newDoc("ten", "", "")
	ten.ChunkIDs = []string{"c-3", "c-10"}
	big := newDoc("big", "", "")
	big.ChunkIDs = []string{"x99"}
	two := newDoc("two", "", "")
	two.ChunkIDs = []string{"a1b2"}
	zero := newDoc("zero", "", "")
	zero.ChunkIDs = []string{"no digits"}
	engine := newTestEngine(none, ten, big, two, zero)

	res, err := engine.Search(context.Background(), SearchOptions{Sort: SortNewest})
	require.NoError(t, err)
	assert.Equal(t, []string{"big", "ten", "two", "none", "zero"}, docIDs(res.Items))
}

func TestRecencyScore_Overflow(t *testing.T) {
	d := newDoc("x", "", "")
	d.ChunkIDs = []string{"chunk-99999999999999999999999"}
	assert.Equal(t, int64(math.MaxInt64), RecencyScore(d))
}

func TestSearch_SortDescLen(t *testing.T) {
	short := newDoc("short", "", "")
	short.Text = "ơơơ"
	long := newDoc("long", "", "")
	long.Text = "abcd"
	previewOnly := newDoc("preview", "", "")
	previewOnly.Text = ""
	previewOnly.TextPreview = "abcdefgh"
	engine := newTestEngine(short, long, previewOnly)

	res, err := engine.Search(context.Background(), SearchOptions{Sort: SortDescLen})
	require.NoError(t, err)
	assert.Equal(t, []string{"preview", "long", "short"}, docIDs(res.Items))
}

func TestSearch_UnknownSortKeepsOrder(t *testing.T) {
	engine := newTestEngine(
		newDoc("c", "", ""),
		newDoc("a", "", ""),
		newDoc("b", "", ""),
	)

	res, err := engine.Search(context.Background(), SearchOptions{Sort: ParseSortKey("popularity")})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, docIDs(res.Items))
}

func TestRelated(t *testing.T) {
	engine := newTestEngine(
		newDoc("a", "", ""),
		newDoc("b", "", ""),
		newDoc("c", "", ""),
		newDoc("d", "", ""),
	)
	ctx := context.Background()

	related, err := engine.Related(ctx, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, docIDs(related))

	related, err = engine.Related(ctx, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, related)

	_, err = engine.Related(ctx, "zzz", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_Observer(t *testing.T) {
	rec := &searchRecorder{}
	engine := NewEngine(document.NewStaticCorpus([]*document.Document{
		newDoc("a", "", ""),
		newDoc("b", "", ""),
		newDoc("c", "", ""),
	}), WithSearchObserver(rec))

	_, err := engine.Search(context.Background(), SearchOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, rec.calls)
}

func TestEngine_Count(t *testing.T) {
	n, err := newTestEngine(newDoc("a", "", ""), newDoc("b", "", "")).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSearch_EndToEndFromCorpusFile(t *testing.T) {
	r := `{"doc_id":"Saola","text":"A. IUCN: CR","page":12}
{"doc_id":"Saola","text":"B.","page":13,"source":"wiki"}
{"title":"Sơn Dương","text":"Mountain goat","image_url":"s.jpg","iucn_status":"vu"}
`
	docs, _, err := document.Aggregate(strings.NewReader(r))
	require.NoError(t, err)
	engine := newTestEngine(docs...)
	ctx := context.Background()

	res, err := engine.Search(ctx, NewQueryBuilder().Status("CR", "VU").Source("WIKI").Build())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "saola", res.Items[0].Slug)

	doc, err := engine.GetBySlug(ctx, "Son-Duong")
	require.NoError(t, err)
	assert.Equal(t, document.StatusVU, doc.IUCNStatus)
}

func TestSearch_RecordsSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	engine := newTestEngine(newDoc("a", "", ""), newDoc("b", "", ""), newDoc("c", "", ""))
	_, err := engine.Search(context.Background(), SearchOptions{PageSize: 2, Sort: SortName})
	require.NoError(t, err)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "query.search", spans[0].Name)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "name", attrs["query.sort"].AsString())
	assert.Equal(t, int64(3), attrs["query.total"].AsInt64())
	assert.Equal(t, int64(2), attrs["query.returned"].AsInt64())
}
