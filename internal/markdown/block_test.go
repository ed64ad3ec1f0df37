// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocJSON = `{
  "blocks": [
    {"type": "text",
     "text": [{"insert": "Weekly Report", "attributes": {"style-bold": true}}],
     "heading": 1},
    {"type": "text",
     "text": [{"insert": "plain "}, {"insert": "code", "attributes": {"style-code": true}}]},
    {"type": "table", "rows": 2, "cols": 2, "children": ["a", "b", "c", "d"]},
    {"type": "drawing", "data": "opaque"}
  ]
}`

func TestParse_SampleDocument(t *testing.T) {
	doc, err := Parse([]byte(sampleDocJSON))
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 4)

	h := doc.Blocks[0]
	assert.Equal(t, BlockText, h.Type)
	assert.Equal(t, 1, h.Heading)
	require.Len(t, h.Runs, 1)
	assert.True(t, h.Runs[0].Bold)
	assert.Equal(t, "Weekly Report", h.Runs[0].Text)

	p := doc.Blocks[1]
	require.Len(t, p.Runs, 2)
	assert.False(t, p.Runs[0].Code)
	assert.True(t, p.Runs[1].Code)

	tb := doc.Blocks[2]
	assert.Equal(t, BlockTable, tb.Type)
	assert.Equal(t, 2, tb.Rows)
	assert.Equal(t, 2, tb.Cols)
	assert.Equal(t, []string{"a", "b", "c", "d"}, tb.Cells)

	u := doc.Blocks[3]
	assert.Equal(t, BlockUnsupported, u.Type)
	assert.Equal(t, "drawing", u.RawType)
}

func TestParse_StyleKeyAliases(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Run
	}{
		{
			"wire names",
			`{"blocks":[{"type":"text","text":[{"insert":"x","attributes":{"style-bold":true,"style-italic":true,"style-strike":true,"style-code":true}}]}]}`,
			Run{Text: "x", Bold: true, Italic: true, Strike: true, Code: true},
		},
		{
			"plain names",
			`{"blocks":[{"type":"text","text":[{"insert":"x","attributes":{"bold":true,"italic":true,"strikethrough":true,"inline-code":true}}]}]}`,
			Run{Text: "x", Bold: true, Italic: true, Strike: true, Code: true},
		},
		{
			"false values ignored",
			`{"blocks":[{"type":"text","text":[{"insert":"x","attributes":{"bold":false}}]}]}`,
			Run{Text: "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.json))
			require.NoError(t, err)
			require.Len(t, doc.Blocks, 1)
			require.Len(t, doc.Blocks[0].Runs, 1)
			assert.Equal(t, tt.want, doc.Blocks[0].Runs[0])
		})
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"blocks": [`))
	assert.Error(t, err)
}

func TestParse_MissingBlocksField(t *testing.T) {
	doc, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Blocks)
}

func TestParse_ThenConvert(t *testing.T) {
	doc, err := Parse([]byte(sampleDocJSON))
	require.NoError(t, err)

	got, err := Convert(doc)
	require.NoError(t, err)
	assert.Equal(t,
		"# **Weekly Report**\n\nplain `code`\n\n| a | b |\n| --- | --- |\n| c | d |",
		got)
}
