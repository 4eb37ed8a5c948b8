// ABOUTME: Groups corpus fragments into per-species documents
// ABOUTME: First-encounter ordering, first-wins fields, status resolution

package document

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// textSeparator joins fragment texts within a document.
const textSeparator = "\n\n"

// aggregate is the mutable grouping state for one document key.
type aggregate struct {
	key       string
	sources   []string
	sourceSet map[string]struct{}
	pageSet   map[int]struct{}
	chunkIDs  []string
	textParts []string
	imageURL  string
	url       string
	status    Status
}

func newAggregate(key string) *aggregate {
	return &aggregate{
		key:       key,
		sourceSet: make(map[string]struct{}),
		pageSet:   make(map[int]struct{}),
	}
}

// add folds one fragment into the aggregate.
func (a *aggregate) add(f Fragment) {
	if f.Source != "" {
		if _, seen := a.sourceSet[f.Source]; !seen {
			a.sourceSet[f.Source] = struct{}{}
			a.sources = append(a.sources, f.Source)
		}
	}
	if f.Page != nil {
		a.pageSet[*f.Page] = struct{}{}
	}
	if f.ChunkID != "" {
		a.chunkIDs = append(a.chunkIDs, f.ChunkID)
	}
	if f.Text != "" {
		a.textParts = append(a.textParts, f.Text)
	}
	if a.imageURL == "" {
		a.imageURL = f.ImageURL
	}
	if a.url == "" {
		a.url = f.URL
	}
	if a.status == "" && f.Status != "" {
		if s, ok := ParseStatus(f.Status); ok {
			a.status = s
		}
	}
}

// finalize builds the immutable Document. inferred reports whether the
// status came from the text heuristic.
func (a *aggregate) finalize() (doc *Document, inferred bool) {
	text := strings.Join(a.textParts, textSeparator)

	pages := make([]int, 0, len(a.pageSet))
	for p := range a.pageSet {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	status := a.status
	if status == "" {
		status = ExtractStatus(text)
		inferred = status != ""
	}

	sources := a.sources
	if sources == nil {
		sources = []string{}
	}
	chunkIDs := a.chunkIDs
	if chunkIDs == nil {
		chunkIDs = []string{}
	}

	return &Document{
		DocID:       a.key,
		Slug:        ToSlug(a.key),
		Source:      sources,
		Pages:       pages,
		ChunkIDs:    chunkIDs,
		Text:        text,
		TextPreview: runePrefix(text, PreviewLength),
		ImageURL:    a.imageURL,
		URL:         a.url,
		IUCNStatus:  status,
	}, inferred
}

// Aggregate reads a line-delimited JSON corpus and groups its fragments by
// document key. Blank lines, lines that are not JSON objects and objects
// without a key are skipped; only a read error fails the call.
func Aggregate(r io.Reader) ([]*Document, Stats, error) {
	var stats Stats

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read corpus: %w", err)
	}

	order := []*aggregate{}
	byKey := make(map[string]*aggregate)

	for _, raw := range bytes.Split(data, []byte("\n")) {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		obj, ok := decodeLine(line)
		if !ok {
			stats.Malformed++
			continue
		}
		f, ok := FragmentFromObject(obj)
		if !ok {
			stats.Keyless++
			continue
		}
		stats.Fragments++

		agg, exists := byKey[f.Key]
		if !exists {
			agg = newAggregate(f.Key)
			byKey[f.Key] = agg
			order = append(order, agg)
		}
		agg.add(f)
	}

	docs := make([]*Document, 0, len(order))
	for _, agg := range order {
		doc, inferred := agg.finalize()
		switch {
		case inferred:
			stats.Inferred++
		case agg.status != "":
			stats.Explicit++
		}
		docs = append(docs, doc)
	}
	stats.Documents = len(docs)

	return docs, stats, nil
}
