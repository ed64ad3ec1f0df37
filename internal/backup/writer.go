// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/wizbak/pkg/types"
)

const (
	assetsDir   = "assets"
	metadataDir = ".metadata"
)

// AttachmentStream pairs an attachment filename with its byte stream. The
// writer copies the stream verbatim; it never inspects attachment bytes.
type AttachmentStream struct {
	Name string
	R    io.Reader
}

// PathIndex resolves which document, if any, owns an output path. The
// writer consults it so a filename committed in an earlier run is never
// reassigned to a different document.
type PathIndex interface {
	Claimant(outputPath string) (guid string, ok bool, err error)
}

// Writer materializes converted documents into the output tree. Markdown
// and attachments are fully written before the caller commits the index
// entry, so a crash mid-write leaves the document eligible for re-fetch.
type Writer struct {
	root  string
	flat  bool
	paths PathIndex

	mu      sync.Mutex
	claimed map[string]string // relPath -> guid, for this run
}

// NewWriter creates a writer rooted at cfg.Dir. paths may be nil, which
// disables cross-run collision checks.
func NewWriter(cfg types.OutputConfig, paths PathIndex) *Writer {
	return &Writer{
		root:    cfg.Dir,
		flat:    cfg.Flat,
		paths:   paths,
		claimed: make(map[string]string),
	}
}

// sidecar is the YAML metadata record written next to the index commit.
type sidecar struct {
	GUID     string    `yaml:"guid"`
	Title    string    `yaml:"title"`
	Folder   string    `yaml:"folder"`
	Version  int64     `yaml:"version"`
	SyncedAt time.Time `yaml:"synced_at"`
}

// Write stores the document's Markdown, its attachments under a sibling
// assets/ directory, and a metadata sidecar. It returns the Markdown path,
// relative to the output root, for the index entry. A document overwrites
// its own earlier file; a path owned by a different document is never
// reused (see claimPath).
func (w *Writer) Write(note types.Note, markdownText string, attachments []AttachmentStream) (string, error) {
	relDir := ""
	if !w.flat {
		relDir = folderToRel(note.Folder)
	}
	dir := filepath.Join(w.root, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	relPath, err := w.claimPath(note, relDir)
	if err != nil {
		return "", err
	}

	if err := writeFileAtomic(filepath.Join(w.root, relPath), []byte(markdownText)); err != nil {
		return "", fmt.Errorf("writing markdown for %s: %w", note.GUID, err)
	}

	for _, att := range attachments {
		attDir := filepath.Join(dir, assetsDir)
		if err := os.MkdirAll(attDir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", attDir, err)
		}
		if err := copyFileAtomic(filepath.Join(attDir, SanitizeTitle(att.Name)), att.R); err != nil {
			return "", fmt.Errorf("writing attachment %s for %s: %w", att.Name, note.GUID, err)
		}
	}

	if err := w.writeSidecar(note); err != nil {
		return "", err
	}
	return relPath, nil
}

// claimPath picks the output path for a document and reserves it. Flat
// mode derives the name from the GUID so it is stable across runs. In
// hierarchy mode the title-derived name is used unless another document
// already owns that path, either committed in a prior run or written
// earlier in this one; then the name gets a GUID suffix.
func (w *Writer) claimPath(note types.Note, relDir string) (string, error) {
	if w.flat {
		return "document_" + note.GUID + ".md", nil
	}

	base := SanitizeTitle(note.Title)
	relPath := filepath.Join(relDir, base+".md")

	taken, err := w.pathOwnedByOther(relPath, note.GUID)
	if err != nil {
		return "", err
	}
	if taken {
		relPath = filepath.Join(relDir, base+"_"+note.GUID+".md")
	}

	w.mu.Lock()
	w.claimed[relPath] = note.GUID
	w.mu.Unlock()
	return relPath, nil
}

func (w *Writer) pathOwnedByOther(relPath, guid string) (bool, error) {
	w.mu.Lock()
	owner, ok := w.claimed[relPath]
	w.mu.Unlock()
	if ok {
		return owner != guid, nil
	}

	if w.paths == nil {
		return false, nil
	}
	owner, ok, err := w.paths.Claimant(relPath)
	if err != nil {
		return false, fmt.Errorf("checking output path %s: %w", relPath, err)
	}
	return ok && owner != guid, nil
}

func (w *Writer) writeSidecar(note types.Note) error {
	dir := filepath.Join(w.root, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := yaml.Marshal(sidecar{
		GUID:     note.GUID,
		Title:    note.Title,
		Folder:   note.Folder,
		Version:  note.Version,
		SyncedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s: %w", note.GUID, err)
	}
	return os.WriteFile(filepath.Join(dir, note.GUID+".yaml"), data, 0o644)
}

// folderToRel converts a remote folder path ("/My Notes/Work/") into a
// relative directory with each segment sanitized.
func folderToRel(folder string) string {
	var segs []string
	for _, seg := range strings.Split(folder, "/") {
		if seg == "" {
			continue
		}
		segs = append(segs, SanitizeTitle(seg))
	}
	return filepath.Join(segs...)
}

// SanitizeTitle makes a note title safe to use as a filename: characters
// the common filesystems reject are replaced with underscores, and an
// empty result falls back to "untitled".
func SanitizeTitle(title string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, title)
	out = strings.TrimSpace(out)
	if out == "" {
		return "untitled"
	}
	return out
}

// writeFileAtomic writes data to path via a temp file and rename, so a
// crash never leaves a half-written document at the final path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wizbak-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func copyFileAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wizbak-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
