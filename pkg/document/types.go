// ABOUTME: Species document data model
// ABOUTME: Defines the raw corpus Fragment and the aggregated Document

package document

// PreviewLength is the maximum number of characters in Document.TextPreview.
const PreviewLength = 600

// Fragment is one record of the line-delimited corpus file after it has
// passed the parse boundary. Absent optional fields are zero values, except
// Page which is nil when the record carries no usable page number.
type Fragment struct {
	Key      string // Grouping key: doc_id, else title, else id, else url
	Source   string // Source label
	Page     *int   // Page number in the source publication
	ChunkID  string // Chunk identifier (the raw "id" field)
	Text     string // Trimmed text slice
	ImageURL string // Image URL
	URL      string // Canonical URL
	Status   string // Raw value of the first status-like field, unvalidated
}

// Document is the aggregated view of every fragment sharing a key.
// Documents are immutable once built by Aggregate.
type Document struct {
	DocID       string   // Grouping key, verbatim from the first fragment
	Slug        string   // ToSlug(DocID)
	Source      []string // Distinct source labels
	Pages       []int    // Distinct page numbers, ascending
	ChunkIDs    []string // Chunk identifiers in encounter order
	Text        string   // Fragment texts joined by a blank line
	TextPreview string   // First PreviewLength characters of Text
	ImageURL    string   // First non-empty image URL
	URL         string   // First non-empty URL
	IUCNStatus  Status   // Empty when unknown
}

// HasImage reports whether the document carries an image URL.
func (d *Document) HasImage() bool {
	return d.ImageURL != ""
}

// Stats describes one pass over a corpus file.
type Stats struct {
	Lines     int // Non-blank lines read
	Fragments int // Lines accepted as fragments
	Malformed int // Lines that were not a JSON object
	Keyless   int // Objects without doc_id, title, id or url
	Documents int // Distinct documents produced
	Inferred  int // Documents whose status came from the text heuristic
	Explicit  int // Documents whose status came from a status field
}
