// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/wizbak/internal/index"
	"github.com/pdiddy/wizbak/internal/markdown"
	"github.com/pdiddy/wizbak/internal/wizapi"
	"github.com/pdiddy/wizbak/pkg/types"
)

// Fetcher is the subset of the API client the coordinator drives. Tests
// substitute an in-memory implementation.
type Fetcher interface {
	DownloadNote(ctx context.Context, docGUID string) ([]byte, error)
	Attachments(ctx context.Context, docGUID string) ([]types.Attachment, error)
	DownloadAttachment(ctx context.Context, docGUID, attGUID string) (io.ReadCloser, error)
}

// Coordinator runs planned documents through fetch, convert and write, and
// commits an index entry per successfully written document.
type Coordinator struct {
	fetcher     Fetcher
	idx         *index.Store
	writer      *Writer
	concurrency int
	log         *slog.Logger
}

// NewCoordinator wires the pipeline stages together. concurrency is the
// worker pool size; values below 1 mean a single worker.
func NewCoordinator(fetcher Fetcher, idx *index.Store, writer *Writer, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		fetcher:     fetcher,
		idx:         idx,
		writer:      writer,
		concurrency: concurrency,
		log:         slog.With("component", "backup"),
	}
}

// Run executes the plan. Per-document failures are recorded in the returned
// stats and never abort sibling pipelines; only an authentication failure
// (or context cancellation) stops the run, in which case dispatching halts
// and in-flight documents finish or abort without committing.
func (c *Coordinator) Run(ctx context.Context, plan Plan, progress io.Writer) (*RunStats, error) {
	stats := &RunStats{}
	stats.addSkipped(plan.Skipped)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, note := range plan.Items {
		note := note
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				stats.addFailure(note, err)
				return nil
			}

			outPath, err := c.processNote(ctx, note)
			if err == nil {
				stats.addSuccess()
				fmt.Fprintf(progress, "backed up: %s\n", outPath)
				return nil
			}
			if errors.Is(err, wizapi.ErrAuth) || errors.Is(err, context.Canceled) {
				// Global conditions: stop the run.
				stats.addFailure(note, err)
				return err
			}
			stats.addFailure(note, err)
			fmt.Fprintf(progress, "failed:  %s (%v)\n", note.Title, err)
			c.log.Warn("document failed", "guid", note.GUID, "title", note.Title, "err", err)
			return nil
		})
	}

	runErr := g.Wait()
	return stats, runErr
}

// processNote runs one document's pipeline: fetch, convert, write, commit.
// Stages are strictly sequential; the index entry is written only after the
// writer reports every artifact durably on disk.
func (c *Coordinator) processNote(ctx context.Context, note types.Note) (string, error) {
	raw, err := c.fetcher.DownloadNote(ctx, note.GUID)
	if err != nil {
		return "", fmt.Errorf("fetching: %w", err)
	}

	doc, err := markdown.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing: %w", err)
	}
	text, err := markdown.Convert(doc)
	if err != nil {
		return "", fmt.Errorf("converting: %w", err)
	}

	streams, closeAll, err := c.openAttachments(ctx, note)
	if err != nil {
		return "", fmt.Errorf("attachments: %w", err)
	}
	defer closeAll()

	outPath, err := c.writer.Write(note, text, streams)
	if err != nil {
		return "", fmt.Errorf("writing: %w", err)
	}

	if err := c.idx.Put(note.GUID, note.Version, outPath); err != nil {
		return "", fmt.Errorf("committing index: %w", err)
	}
	return outPath, nil
}

func (c *Coordinator) openAttachments(ctx context.Context, note types.Note) ([]AttachmentStream, func(), error) {
	atts, err := c.fetcher.Attachments(ctx, note.GUID)
	if err != nil {
		return nil, nil, err
	}

	var streams []AttachmentStream
	var closers []io.Closer
	closeAll := func() {
		for _, cl := range closers {
			cl.Close()
		}
	}

	for _, att := range atts {
		rc, err := c.fetcher.DownloadAttachment(ctx, note.GUID, att.GUID)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, rc)
		streams = append(streams, AttachmentStream{Name: att.Name, R: rc})
	}
	return streams, closeAll, nil
}
