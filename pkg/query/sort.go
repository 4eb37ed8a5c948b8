// ABOUTME: Result orderings for Search
// ABOUTME: name (collated), desc_len, and the chunk-id recency proxy

package query

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nainya/redlist/pkg/document"
)

var digitRun = regexp.MustCompile(`\d+`)

// sortDocuments orders docs in place. Every ordering is stable; unknown
// keys leave the slice untouched.
func sortDocuments(docs []*document.Document, key SortKey) {
	switch key {
	case SortName:
		// Collators keep scratch buffers, so each sort gets its own.
		c := collate.New(language.Und)
		slices.SortStableFunc(docs, func(a, b *document.Document) int {
			return c.CompareString(a.DocID, b.DocID)
		})
	case SortDescLen:
		sortByScoreDesc(docs, textLength)
	case SortNewest:
		sortByScoreDesc(docs, RecencyScore)
	}
}

func sortByScoreDesc(docs []*document.Document, score func(*document.Document) int64) {
	type scored struct {
		doc   *document.Document
		score int64
	}
	tmp := make([]scored, len(docs))
	for i, d := range docs {
		tmp[i] = scored{doc: d, score: score(d)}
	}
	slices.SortStableFunc(tmp, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	for i := range tmp {
		docs[i] = tmp[i].doc
	}
}

func textLength(d *document.Document) int64 {
	if d.Text != "" {
		return int64(utf8.RuneCountInString(d.Text))
	}
	return int64(utf8.RuneCountInString(d.TextPreview))
}

// RecencyScore is the largest integer appearing in any of the document's
// chunk ids, or 0. Chunk ids are assigned by the corpus build in processing
// order, so this only approximates recency.
func RecencyScore(d *document.Document) int64 {
	var best int64
	for _, id := range d.ChunkIDs {
		for _, run := range digitRun.FindAllString(id, -1) {
			n, err := strconv.ParseInt(run, 10, 64)
			if err != nil {
				n = math.MaxInt64
			}
			if n > best {
				best = n
			}
		}
	}
	return best
}
