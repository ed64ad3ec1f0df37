// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRun_NestingOrder(t *testing.T) {
	tests := []struct {
		name string
		run  Run
		want string
	}{
		{"plain", Run{Text: "x"}, "x"},
		{"bold", Run{Text: "x", Bold: true}, "**x**"},
		{"italic", Run{Text: "x", Italic: true}, "*x*"},
		{"strike", Run{Text: "x", Strike: true}, "~~x~~"},
		{"code", Run{Text: "x", Code: true}, "`x`"},
		{"bold italic", Run{Text: "x", Bold: true, Italic: true}, "***x***"},
		{"bold strike", Run{Text: "x", Bold: true, Strike: true}, "~~**x**~~"},
		{"all styles", Run{Text: "x", Bold: true, Italic: true, Strike: true, Code: true}, "`~~***x***~~`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderRun(tt.run); got != tt.want {
				t.Errorf("renderRun(%+v) = %q, want %q", tt.run, got, tt.want)
			}
		})
	}
}

func TestConvert_HeadingBold(t *testing.T) {
	doc := &Document{Blocks: []Block{{
		Type:    BlockText,
		Runs:    []Run{{Text: "项目周报", Bold: true}},
		Heading: 1,
	}}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, "# **项目周报**", got)
}

func TestConvert_TableRoundTrip(t *testing.T) {
	doc := &Document{Blocks: []Block{{
		Type:  BlockTable,
		Rows:  2,
		Cols:  2,
		Cells: []string{"a", "b", "c", "d"},
	}}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, "| a | b |\n| --- | --- |\n| c | d |", got)
}

func TestConvert_TableStructuralMismatch(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		cols  int
		cells []string
	}{
		{"too few cells", 2, 2, []string{"a", "b", "c"}},
		{"too many cells", 1, 2, []string{"a", "b", "c"}},
		{"zero rows with cells", 0, 2, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Blocks: []Block{{
				Type: BlockTable, Rows: tt.rows, Cols: tt.cols, Cells: tt.cells,
			}}}
			_, err := Convert(doc)
			var sm *StructuralMismatchError
			require.Error(t, err)
			require.True(t, errors.As(err, &sm))
			assert.Equal(t, len(tt.cells), sm.Cells)
		})
	}
}

func TestConvert_ZeroSizedTableEmitsNothing(t *testing.T) {
	doc := &Document{Blocks: []Block{
		{Type: BlockText, Runs: []Run{{Text: "before"}}},
		{Type: BlockTable, Rows: 0, Cols: 0},
		{Type: BlockText, Runs: []Run{{Text: "after"}}},
	}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, "before\n\nafter", got)
}

func TestConvert_UnsupportedBlockIsNoOp(t *testing.T) {
	doc := &Document{Blocks: []Block{
		{Type: BlockText, Runs: []Run{{Text: "kept"}}},
		{Type: BlockUnsupported, RawType: "embed"},
		{Type: BlockText, Runs: []Run{{Text: "also kept"}}},
	}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, "kept\n\nalso kept", got)
}

func TestConvert_QuotedPrefixesEveryLine(t *testing.T) {
	doc := &Document{Blocks: []Block{{
		Type:   BlockText,
		Runs:   []Run{{Text: "first\nsecond"}},
		Quoted: true,
	}}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, "> first\n> second", got)
}

func TestConvert_QuotedHeading(t *testing.T) {
	doc := &Document{Blocks: []Block{{
		Type:    BlockText,
		Runs:    []Run{{Text: "title"}},
		Heading: 2,
		Quoted:  true,
	}}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, "> ## title", got)
}

func TestConvert_EmptyRunsKeepHeadingPrefix(t *testing.T) {
	doc := &Document{Blocks: []Block{{Type: BlockText, Heading: 3}}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, "### ", got)
}

func TestConvert_PipeEscapedInCells(t *testing.T) {
	doc := &Document{Blocks: []Block{{
		Type: BlockTable, Rows: 1, Cols: 2,
		Cells: []string{"a|b", "c"},
	}}}

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t, `| a\|b | c |`+"\n| --- | --- |", got)
}

func TestConvert_HeadingOutOfRangeIgnored(t *testing.T) {
	for _, level := range []int{-1, 0, 7} {
		doc := &Document{Blocks: []Block{{
			Type: BlockText, Runs: []Run{{Text: "x"}}, Heading: level,
		}}}
		got, err := Convert(doc)
		require.NoError(t, err)
		assert.Equal(t, "x", got, "heading level %d", level)
	}
}

func TestConvert_Deterministic(t *testing.T) {
	doc := &Document{Blocks: []Block{
		{Type: BlockText, Runs: []Run{{Text: "intro", Bold: true, Italic: true}}},
		{Type: BlockTable, Rows: 2, Cols: 1, Cells: []string{"h", "v"}},
	}}

	first, err := Convert(doc)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Convert(doc)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
