package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/redlist/pkg/document"
	"github.com/nainya/redlist/pkg/jsonx"
)

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"A.", "B.", "C\nstill C"}, Paragraphs("A.\n\nB.\n\n\n\nC\nstill C\n"))
	assert.Empty(t, Paragraphs(""))
}

func TestToListItem_UnknownStatusIsNull(t *testing.T) {
	d := newDoc("Saola", "", "")

	data, err := jsonx.Marshal(ToListItem(d))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"iucn_status":null`)
	assert.Contains(t, string(data), `"icun":null`)
	assert.NotContains(t, string(data), `"text":`)
}

func TestToDetail(t *testing.T) {
	d := newDoc("Saola", document.StatusCR, "s.jpg")
	d.Text = "A. IUCN: CR\n\nB."
	d.Source = []string{"wiki"}
	d.Pages = []int{12, 13}

	detail := ToDetail(d)
	require.NotNil(t, detail.IUCNStatus)
	assert.Equal(t, "CR", *detail.IUCNStatus)
	assert.Equal(t, detail.IUCNStatus, detail.ICUN)
	assert.Equal(t, "saola", detail.Slug)
	assert.Equal(t, []int{12, 13}, detail.Pages)
	assert.Equal(t, []string{"A. IUCN: CR", "B."}, detail.Paragraphs)

	var decoded map[string]interface{}
	data, err := jsonx.Marshal(detail)
	require.NoError(t, err)
	require.NoError(t, jsonx.Unmarshal(data, &decoded))
	assert.Equal(t, "CR", decoded["iucn_status"])
	assert.Equal(t, "s.jpg", decoded["image_url"])
	assert.Equal(t, []interface{}{"wiki"}, decoded["source"])
}

func TestListItem_EmptyURLsSerialized(t *testing.T) {
	data, err := jsonx.Marshal(ToListItem(newDoc("Saola", "", "")))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, jsonx.Unmarshal(data, &decoded))
	for _, key := range []string{"image_url", "url"} {
		v, ok := decoded[key]
		require.True(t, ok, key)
		assert.Equal(t, "", v, key)
	}
	assert.Nil(t, decoded["iucn_status"])
}

func TestNewListResponse(t *testing.T) {
	resp := NewListResponse(&SearchResult{
		Items:    []*document.Document{newDoc("a", document.StatusLC, "")},
		Total:    7,
		Page:     2,
		PageSize: 1,
	})
	assert.Equal(t, 7, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "a", resp.Items[0].DocID)

	data, err := jsonx.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pageSize":1`)
}
