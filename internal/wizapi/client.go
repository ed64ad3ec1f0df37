// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wizapi is the read-only client for the note service's knowledge
// base API: folder and note listings, note block-tree downloads, and
// attachment streams. All requests pass through a shared token-bucket rate
// limiter and a bounded retry policy, so callers can fan out without
// exceeding the service's request ceiling.
package wizapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/wizbak/internal/httputil"
	"github.com/pdiddy/wizbak/pkg/types"
)

const (
	listPageSize = 100

	defaultUserAgent = "wizbak/0.1"
)

// Client talks to one knowledge base.
type Client struct {
	http       *http.Client
	kbServer   string
	kbGUID     string
	userAgent  string
	tokens     TokenSource
	limiter    *rate.Limiter
	maxRetries int
	log        *slog.Logger
}

// New builds a client for the knowledge base at kbServer/kbGUID. The rate
// limiter admits cfg.RatePerSecond request starts per second with no burst
// headroom, independent of how many workers are fetching.
func New(cfg types.APIConfig, kbServer, kbGUID string, tokens TokenSource) *Client {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		kbServer:   strings.TrimRight(kbServer, "/"),
		kbGUID:     kbGUID,
		userAgent:  ua,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: cfg.MaxRetries,
		log:        slog.With("component", "wizapi"),
	}
}

// envelope is the service's response wrapper. Some endpoints return it,
// others return the payload bare; decodeEnvelope handles both.
type envelope struct {
	ReturnCode    int             `json:"returnCode"`
	ReturnMessage string          `json:"returnMessage"`
	Result        json.RawMessage `json:"result"`
}

func decodeEnvelope(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Result != nil {
		if env.ReturnCode != 0 && env.ReturnCode != 200 {
			return fmt.Errorf("API error %d: %s", env.ReturnCode, env.ReturnMessage)
		}
		return json.Unmarshal(env.Result, v)
	}
	return json.Unmarshal(data, v)
}

// get performs a rate-limited, retried GET against the kb server and
// returns the response body. A 401 triggers exactly one token refresh; a
// second 401 surfaces ErrAuth.
func (c *Client) get(ctx context.Context, path string, query url.Values) (io.ReadCloser, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	refreshed := false
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		u := c.kbServer + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("X-Wiz-Token", token)
		req.Header.Set("User-Agent", c.userAgent)

		c.log.Debug("request", "url", u)
		resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
		if err != nil {
			// Cancellation is a run-level condition, not a per-document
			// transient failure.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrTransient)
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.log.Info("token rejected, refreshing")
			token, err = c.tokens.Refresh(ctx)
			if err != nil {
				return nil, fmt.Errorf("refreshing token: %w", err)
			}
			refreshed = true
			continue
		}

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, statusError(resp.StatusCode, u)
		}
		return resp.Body, nil
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := decodeEnvelope(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// AllFolders lists every folder path in the knowledge base.
func (c *Client) AllFolders(ctx context.Context) ([]string, error) {
	var folders []string
	if err := c.getJSON(ctx, "/ks/category/all/"+c.kbGUID, nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// NotesInFolder returns one page of note metadata for a folder.
func (c *Client) NotesInFolder(ctx context.Context, folder string, start, count int) ([]types.Note, error) {
	q := url.Values{
		"category":  {folder},
		"start":     {strconv.Itoa(start)},
		"count":     {strconv.Itoa(count)},
		"orderBy":   {"modified"},
		"ascending": {"desc"},
	}
	var notes []types.Note
	if err := c.getJSON(ctx, "/ks/note/list/category/"+c.kbGUID, q, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// AllNotes pages through a folder's notes until a short page.
func (c *Client) AllNotes(ctx context.Context, folder string) ([]types.Note, error) {
	var all []types.Note
	for start := 0; ; {
		page, err := c.NotesInFolder(ctx, folder, start, listPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		start += len(page)
	}
}

// DownloadNote fetches the raw block-tree JSON for one document.
func (c *Client) DownloadNote(ctx context.Context, docGUID string) ([]byte, error) {
	q := url.Values{"downloadInfo": {"0"}, "downloadData": {"1"}}
	body, err := c.get(ctx, "/ks/note/download/"+c.kbGUID+"/"+docGUID, q)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading note %s: %v: %w", docGUID, err, ErrTransient)
	}

	// Unwrap the response envelope when present; the block tree itself is
	// what the converter consumes.
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Result != nil {
		if env.ReturnCode != 0 && env.ReturnCode != 200 {
			return nil, fmt.Errorf("note %s: API error %d: %s", docGUID, env.ReturnCode, env.ReturnMessage)
		}
		return env.Result, nil
	}
	return data, nil
}

type noteInfo struct {
	Attachments []types.Attachment `json:"attachments"`
}

// Attachments lists a note's binary attachments. Notes without attachments
// return an empty slice.
func (c *Client) Attachments(ctx context.Context, docGUID string) ([]types.Attachment, error) {
	var info noteInfo
	err := c.getJSON(ctx, "/ks/note/view/"+c.kbGUID+"/"+docGUID+"/", nil, &info)
	if err != nil {
		return nil, err
	}
	return info.Attachments, nil
}

// DownloadAttachment opens a byte stream for one attachment. The caller
// owns the returned ReadCloser.
func (c *Client) DownloadAttachment(ctx context.Context, docGUID, attGUID string) (io.ReadCloser, error) {
	return c.get(ctx, "/ks/attachment/download/"+c.kbGUID+"/"+docGUID+"/"+attGUID, nil)
}
