// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown parses note block trees and renders them as Markdown.
// Parsing maps the service's open-ended JSON block shapes onto a closed set
// of variants; rendering is a pure function over that set, so converter
// output is byte-deterministic for a given document.
package markdown

import (
	"encoding/json"
	"fmt"
)

// BlockType discriminates the block variants.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockTable BlockType = "table"

	// BlockUnsupported marks a block type the converter does not render.
	// Unsupported blocks survive parsing as no-op markers so a document is
	// never silently truncated.
	BlockUnsupported BlockType = "unsupported"
)

// Run is one styled text segment inside a text block. The style flags are a
// fixed-order set: rendering applies them in a canonical nesting order
// regardless of how the source JSON ordered its attribute map.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Strike bool
	Code   bool
}

// Block is one content unit of a document. Exactly one variant's fields are
// meaningful, selected by Type.
type Block struct {
	Type BlockType

	// Text variant.
	Runs    []Run
	Heading int // 1..6, 0 when absent
	Quoted  bool

	// Table variant. Cells is row-major with len(Cells) == Rows*Cols
	// enforced at render time.
	Rows  int
	Cols  int
	Cells []string

	// RawType preserves the wire type name for unsupported blocks.
	RawType string
}

// Document is a parsed block tree.
type Document struct {
	Blocks []Block
}

type wireRun struct {
	Insert     string          `json:"insert"`
	Attributes map[string]bool `json:"attributes"`
}

type wireBlock struct {
	Type     string    `json:"type"`
	Text     []wireRun `json:"text"`
	Heading  int       `json:"heading"`
	Quoted   bool      `json:"quoted"`
	Rows     int       `json:"rows"`
	Cols     int       `json:"cols"`
	Children []string  `json:"children"`
}

type wireDoc struct {
	Blocks []wireBlock `json:"blocks"`
}

// Parse decodes a block-tree JSON document. Unknown block types become
// BlockUnsupported variants rather than parse errors; only malformed JSON
// fails.
func Parse(data []byte) (*Document, error) {
	var wd wireDoc
	if err := json.Unmarshal(data, &wd); err != nil {
		return nil, fmt.Errorf("parsing block tree: %w", err)
	}

	doc := &Document{Blocks: make([]Block, 0, len(wd.Blocks))}
	for _, wb := range wd.Blocks {
		switch wb.Type {
		case "text", "":
			doc.Blocks = append(doc.Blocks, Block{
				Type:    BlockText,
				Runs:    parseRuns(wb.Text),
				Heading: wb.Heading,
				Quoted:  wb.Quoted,
			})
		case "table":
			doc.Blocks = append(doc.Blocks, Block{
				Type:  BlockTable,
				Rows:  wb.Rows,
				Cols:  wb.Cols,
				Cells: wb.Children,
			})
		default:
			doc.Blocks = append(doc.Blocks, Block{
				Type:    BlockUnsupported,
				RawType: wb.Type,
			})
		}
	}
	return doc, nil
}

func parseRuns(items []wireRun) []Run {
	runs := make([]Run, 0, len(items))
	for _, it := range items {
		runs = append(runs, Run{
			Text:   it.Insert,
			Bold:   styleSet(it.Attributes, "bold", "style-bold"),
			Italic: styleSet(it.Attributes, "italic", "style-italic"),
			Strike: styleSet(it.Attributes, "strikethrough", "style-strike"),
			Code:   styleSet(it.Attributes, "inline-code", "style-code"),
		})
	}
	return runs
}

// styleSet reports whether any of the given attribute keys is true. The
// service emits "style-bold" style keys; plain names are accepted as well.
func styleSet(attrs map[string]bool, keys ...string) bool {
	for _, k := range keys {
		if attrs[k] {
			return true
		}
	}
	return false
}
