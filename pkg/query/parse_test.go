package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"EN", "VU"}, ParseList(" EN, ,VU,"))
	assert.Nil(t, ParseList(""))
	assert.Nil(t, ParseList(" , "))
}

func TestParseTriState(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " y "} {
		got := ParseTriState(v)
		if assert.NotNil(t, got, v) {
			assert.True(t, *got, v)
		}
	}
	for _, v := range []string{"0", "False", "no", "N"} {
		got := ParseTriState(v)
		if assert.NotNil(t, got, v) {
			assert.False(t, *got, v)
		}
	}
	for _, v := range []string{"", "maybe", "2"} {
		assert.Nil(t, ParseTriState(v), v)
	}
}

func TestParsePage(t *testing.T) {
	tests := map[string]int{
		"":    1,
		"abc": 1,
		"0":   1,
		"-4":  1,
		"3":   3,
		"3rd": 3,
		" 7 ": 7,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePage(in), "input %q", in)
	}
}

func TestParsePageSize(t *testing.T) {
	tests := map[string]int{
		"":     DefaultPageSize,
		"junk": DefaultPageSize,
		"0":    DefaultPageSize,
		"-5":   1,
		"20":   20,
		"999":  MaxPageSize,
		"+50":  50,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePageSize(in), "input %q", in)
	}
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortName, ParseSortKey(" Name "))
	assert.Equal(t, SortDescLen, ParseSortKey("DESC_LEN"))
	assert.Equal(t, SortNone, ParseSortKey(""))
}

func TestQueryBuilder(t *testing.T) {
	opts := NewQueryBuilder().
		Text("saola").
		Status("CR", "EN").
		HasImage(true).
		Source("wiki").
		SortBy(SortNewest).
		Page(2).
		PageSize(20).
		Build()

	assert.Equal(t, "saola", opts.Query)
	assert.Equal(t, []string{"CR", "EN"}, opts.Statuses)
	if assert.NotNil(t, opts.HasImage) {
		assert.True(t, *opts.HasImage)
	}
	assert.Equal(t, []string{"wiki"}, opts.Sources)
	assert.Equal(t, SortNewest, opts.Sort)
	assert.Equal(t, 2, opts.Page)
	assert.Equal(t, 20, opts.PageSize)
}
