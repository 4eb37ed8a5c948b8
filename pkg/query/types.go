// ABOUTME: Query engine request and result types
// ABOUTME: Search options, sort keys, and a fluent builder

package query

import (
	"errors"
	"strings"

	"github.com/nainya/redlist/pkg/document"
)

// Page size bounds for Search.
const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

// ErrNotFound is returned when no document matches a slug.
var ErrNotFound = errors.New("document not found")

// SortKey selects the ordering applied after filtering.
type SortKey string

const (
	SortNone    SortKey = ""         // Collection order
	SortName    SortKey = "name"     // DocID ascending, locale-aware
	SortNewest  SortKey = "newest"   // Highest number in any chunk id first
	SortDescLen SortKey = "desc_len" // Longest text first
)

// ParseSortKey lowercases s. Unknown keys are kept and sort nothing.
func ParseSortKey(s string) SortKey {
	return SortKey(strings.ToLower(strings.TrimSpace(s)))
}

// SearchOptions describes one list request. Zero values impose no
// constraint; Page and PageSize are normalized by Search.
type SearchOptions struct {
	Query    string   // Free text, matched accent- and case-insensitively
	Page     int      // 1-based
	PageSize int      // Clamped to [1, MaxPageSize]; 0 means DefaultPageSize
	Statuses []string // Any of these IUCN codes
	HasImage *bool    // nil: either; true: with image; false: without
	Sources  []string // Any of these source labels
	Sort     SortKey
}

// SearchResult is one page of matches.
type SearchResult struct {
	Items    []*document.Document
	Total    int // Matches before pagination
	Page     int
	PageSize int
}

// QueryBuilder provides fluent interface for building searches
type QueryBuilder struct {
	opts SearchOptions
}

// NewQueryBuilder creates a builder for the first page at the default size
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		opts: SearchOptions{
			Page:     1,
			PageSize: DefaultPageSize,
		},
	}
}

// Text sets the free-text query
func (qb *QueryBuilder) Text(q string) *QueryBuilder {
	qb.opts.Query = q
	return qb
}

// Status adds status codes to the status facet
func (qb *QueryBuilder) Status(codes ...string) *QueryBuilder {
	qb.opts.Statuses = append(qb.opts.Statuses, codes...)
	return qb
}

// HasImage sets the image facet
func (qb *QueryBuilder) HasImage(has bool) *QueryBuilder {
	qb.opts.HasImage = &has
	return qb
}

// Source adds labels to the source facet
func (qb *QueryBuilder) Source(sources ...string) *QueryBuilder {
	qb.opts.Sources = append(qb.opts.Sources, sources...)
	return qb
}

// SortBy sets the ordering
func (qb *QueryBuilder) SortBy(key SortKey) *QueryBuilder {
	qb.opts.Sort = key
	return qb
}

// Page sets the 1-based page number
func (qb *QueryBuilder) Page(page int) *QueryBuilder {
	qb.opts.Page = page
	return qb
}

// PageSize sets the page size
func (qb *QueryBuilder) PageSize(size int) *QueryBuilder {
	qb.opts.PageSize = size
	return qb
}

// Build returns the constructed options
func (qb *QueryBuilder) Build() SearchOptions {
	return qb.opts
}
