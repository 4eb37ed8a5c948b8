// ABOUTME: List and detail projections of a Document
// ABOUTME: JSON shapes returned by the HTTP, gRPC and CLI surfaces

package query

import (
	"regexp"
	"strings"

	"github.com/nainya/redlist/pkg/document"
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// ListItem is the summary projection used in list responses. IUCNStatus is
// null in JSON when the status is unknown; ICUN repeats it under the field
// name older clients read.
type ListItem struct {
	Slug        string  `json:"slug"`
	DocID       string  `json:"doc_id"`
	IUCNStatus  *string `json:"iucn_status"`
	ICUN        *string `json:"icun"`
	ImageURL    string  `json:"image_url"` // "" when absent
	TextPreview string  `json:"text_preview"`
	URL         string  `json:"url"` // "" when absent
}

// Detail is the full projection of a single document.
type Detail struct {
	ListItem
	Text       string   `json:"text"`
	Source     []string `json:"source"`
	Pages      []int    `json:"pages"`
	Paragraphs []string `json:"paragraphs"`
}

// ToListItem projects d into its summary form.
func ToListItem(d *document.Document) ListItem {
	var status *string
	if d.IUCNStatus != "" {
		s := d.IUCNStatus.String()
		status = &s
	}
	return ListItem{
		Slug:        d.Slug,
		DocID:       d.DocID,
		IUCNStatus:  status,
		ICUN:        status,
		ImageURL:    d.ImageURL,
		TextPreview: d.TextPreview,
		URL:         d.URL,
	}
}

// ToListItems projects every document in docs.
func ToListItems(docs []*document.Document) []ListItem {
	items := make([]ListItem, len(docs))
	for i, d := range docs {
		items[i] = ToListItem(d)
	}
	return items
}

// ToDetail projects d into its full form.
func ToDetail(d *document.Document) Detail {
	return Detail{
		ListItem:   ToListItem(d),
		Text:       d.Text,
		Source:     d.Source,
		Pages:      d.Pages,
		Paragraphs: Paragraphs(d.Text),
	}
}

// Paragraphs splits text on runs of blank lines, dropping empty pieces.
func Paragraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListResponse is the list endpoint body.
type ListResponse struct {
	Items    []ListItem `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}

// NewListResponse projects a search result.
func NewListResponse(r *SearchResult) ListResponse {
	return ListResponse{
		Items:    ToListItems(r.Items),
		Total:    r.Total,
		Page:     r.Page,
		PageSize: r.PageSize,
	}
}
