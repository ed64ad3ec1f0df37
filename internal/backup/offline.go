// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/wizbak/internal/markdown"
)

// BatchResult holds the outcome of an offline conversion run.
type BatchResult struct {
	Converted int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Failed
}

// HasFailures reports whether any files failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertTree converts every block-tree JSON file under srcDir to Markdown
// in outDir, without touching the network. It continues after individual
// failures and prints per-file status to w. Output names derive from the
// JSON filename, or from the parent directory for the service's
// "latest.json" layout; name collisions fall back to positional names.
func ConvertTree(srcDir, outDir string, w io.Writer) (BatchResult, error) {
	var result BatchResult

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return result, fmt.Errorf("creating %s: %w", outDir, err)
	}

	seq := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		seq++

		outName := offlineName(path, seq)
		outPath := filepath.Join(outDir, outName)
		if _, statErr := os.Stat(outPath); statErr == nil {
			outPath = filepath.Join(outDir, fmt.Sprintf("document_%04d.md", seq))
		}

		if convErr := convertFile(path, outPath); convErr != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", path, convErr)
			result.Failed++
			return nil
		}
		fmt.Fprintf(w, "converted: %s -> %s\n", path, outPath)
		result.Converted++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walking %s: %w", srcDir, err)
	}

	fmt.Fprintf(w, "\nConversion summary: %d converted, %d failed (total: %d)\n",
		result.Converted, result.Failed, result.Total())
	return result, nil
}

// offlineName picks an output filename for one source JSON file.
func offlineName(path string, seq int) string {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	if base == "latest" {
		base = filepath.Base(filepath.Dir(path))
	}
	base = SanitizeTitle(base)
	if base == "untitled" {
		return fmt.Sprintf("document_%04d.md", seq)
	}
	return base + ".md"
}

func convertFile(jsonPath, outPath string) error {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return err
	}
	doc, err := markdown.Parse(data)
	if err != nil {
		return err
	}
	text, err := markdown.Convert(doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(outPath, []byte(text))
}
