package warns

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		keyword, text string
		want          bool
	}{
		{"cat", "a cat sat", true},
		{"cat", "CAT!", true},
		{"cat", "category", false},
		{"cat", "concatenate", false},
		{"cat", "cat", true},
		{"very angry", "he is very angry today", true},
		{"a.b", "axb", false},
		{"a.b", "see a.b here", true},
		{"кот", "мой Кот спит", true},
		{"кот", "котик", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.keyword, tt.text), "%q in %q", tt.keyword, tt.text)
	}
}

func TestSplitQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`"very angry" This is an angry user`, []string{"very angry", "This is an angry user"}},
		{`hello world and more`, []string{"hello", "world and more"}},
		{`'it\'s' fine`, []string{"it's", "fine"}},
		{`“smart quotes” reply`, []string{"smart quotes", "reply"}},
		{`"" empty`, []string{`""`, "empty"}},
		{`"unterminated reply`, []string{`"unterminated`, "reply"}},
		{`single`, []string{"single"}},
		{`"only key"`, []string{"only key"}},
		{``, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitQuotes(tt.in), "input %q", tt.in)
	}
}

func newRegistry() (*Registry, *memStore, *fakeModerator) {
	l, store, mod := newLedger()
	return NewRegistry(store, l), store, mod
}

func TestAddFilterReplaces(t *testing.T) {
	ctx := context.Background()
	r, store, _ := newRegistry()

	_, err := r.AddFilter(ctx, chat, `"Bad Word" first`)
	require.NoError(t, err)
	f, err := r.AddFilter(ctx, chat, `"bad word" second`)
	require.NoError(t, err)
	assert.Equal(t, "bad word", f.Keyword)

	filters, _ := store.Filters(ctx, chat)
	require.Len(t, filters, 1)
	assert.Equal(t, "second", filters[0].Reply)
}

func TestAddFilterMalformed(t *testing.T) {
	r, _, _ := newRegistry()
	_, err := r.AddFilter(context.Background(), chat, `"lonely"`)
	assert.ErrorIs(t, err, ErrMalformedFilter)
}

func TestRemoveFilter(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry()

	res, err := r.RemoveFilter(ctx, chat, "x")
	require.NoError(t, err)
	assert.Equal(t, NoFilters, res)

	_, _ = r.AddFilter(ctx, chat, "spam no spam")
	res, _ = r.RemoveFilter(ctx, chat, "SPAM")
	assert.Equal(t, FilterNotFound, res)
	res, _ = r.RemoveFilter(ctx, chat, "spam")
	assert.Equal(t, Removed, res)
}

func TestListFiltersPaginates(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry()

	pages, err := r.ListFilters(ctx, chat, 4096)
	require.NoError(t, err)
	assert.Nil(t, pages)

	for i := 0; i < 200; i++ {
		_, err := r.AddFilter(ctx, chat, fmt.Sprintf("keyword_number_%03d reply", i))
		require.NoError(t, err)
	}
	pages, err = r.ListFilters(ctx, chat, 1000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pages), 2)
	assert.True(t, strings.HasPrefix(pages[0], ListHeader))

	seen := 0
	for _, p := range pages {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 1000)
		for _, line := range strings.Split(strings.TrimSuffix(p, "\n"), "\n") {
			if strings.HasPrefix(line, " - ") {
				assert.Contains(t, line, `keyword\_number\_`)
				seen++
			}
		}
	}
	assert.Equal(t, 200, seen)
}

func TestMatchAndWarn(t *testing.T) {
	ctx := context.Background()
	r, store, _ := newRegistry()
	_, err := r.AddFilter(ctx, chat, `"very angry" This is an angry user`)
	require.NoError(t, err)

	outs, err := r.MatchAndWarn(ctx, chat, 7, "he is very angry today")
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "This is an angry user", outs[0].Reason)

	rec, _ := store.Warns(ctx, chat, 7)
	assert.Equal(t, []string{"This is an angry user"}, rec.Reasons)

	outs, err = r.MatchAndWarn(ctx, chat, 7, "angrily very")
	require.NoError(t, err)
	assert.Empty(t, outs)
}

func TestMatchAndWarnCompounds(t *testing.T) {
	ctx := context.Background()
	r, store, _ := newRegistry()
	_, _ = r.AddFilter(ctx, chat, "spam first")
	_, _ = r.AddFilter(ctx, chat, "scam second")

	outs, err := r.MatchAndWarn(ctx, chat, 7, "spam and scam")
	require.NoError(t, err)
	assert.Len(t, outs, 2)

	rec, _ := store.Warns(ctx, chat, 7)
	assert.Equal(t, 2, rec.Count)
}
