// ABOUTME: Parse boundary for corpus records
// ABOUTME: Turns one loosely-typed JSON object into a typed Fragment

package document

import (
	"math"
	"strconv"
	"strings"

	"github.com/nainya/redlist/pkg/jsonx"
)

// keyFields are checked in order; the first non-empty one is the document key.
var keyFields = []string{"doc_id", "title", "id", "url"}

// statusFields are the spellings of the status field seen in corpus builds.
var statusFields = []string{
	"icun", "iucn", "iucn_status", "IUCN", "IUCN_status",
	"iucn_code", "iucn_text", "iucnStatus",
}

// ParseFragment decodes one corpus line. It returns false for lines that are
// not a JSON object and for objects without a usable document key.
func ParseFragment(line []byte) (Fragment, bool) {
	obj, ok := decodeLine(line)
	if !ok {
		return Fragment{}, false
	}
	return FragmentFromObject(obj)
}

func decodeLine(line []byte) (map[string]interface{}, bool) {
	return jsonx.DecodeObject(line)
}

// FragmentFromObject validates a decoded JSON object.
func FragmentFromObject(obj map[string]interface{}) (Fragment, bool) {
	var f Fragment
	for _, k := range keyFields {
		if v := scalarString(obj[k]); v != "" {
			f.Key = v
			break
		}
	}
	if f.Key == "" {
		return Fragment{}, false
	}

	f.Source = scalarString(obj["source"])
	f.Page = pageNumber(obj["page"])
	f.ChunkID = scalarString(obj["id"])
	if text, ok := obj["text"].(string); ok {
		f.Text = strings.TrimSpace(text)
	}
	f.ImageURL = scalarString(obj["image_url"])
	f.URL = scalarString(obj["url"])

	for _, k := range statusFields {
		if v := scalarString(obj[k]); v != "" {
			f.Status = v
			break
		}
	}

	return f, true
}

// scalarString renders strings and numbers; empty strings, zero, false,
// null and composite values all count as absent.
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 || math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
	}
	return ""
}

// pageNumber accepts integral JSON numbers and integer strings. A string
// page "3" and a numeric page 3 name the same page. Fractional numbers are
// not page numbers and are dropped.
func pageNumber(v interface{}) *int {
	var n int
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return nil
		}
		if t > math.MaxInt32 || t < math.MinInt32 {
			return nil
		}
		n = int(t)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}
