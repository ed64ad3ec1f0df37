// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the API client.
package httputil

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient failures. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxRetries = 3

// Transient reports whether an HTTP status code signals a condition worth
// retrying: remote throttling (429) or a server-side failure (5xx).
// Client errors such as 401, 403 and 404 are not transient.
func Transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request and retries transient failures
// (network errors and Transient status codes) with exponential backoff and
// jitter. The delay for attempt n is RetryBaseDelay*2^n plus up to one
// RetryBaseDelay of jitter.
//
// When maxRetries is 0 the default (3) is used. Before each retry the
// response body, if any, is drained and closed. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last response or error is returned so the caller can inspect
// it. Requests are cloned per attempt; a request with a body must carry
// GetBody (http.NewRequest sets it for in-memory readers) so the body can
// be rewound.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err == nil && !Transient(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted retries — surface the last outcome as-is.
		if attempt >= maxRetries {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := RetryBaseDelay << attempt
		backoff += time.Duration(rand.Int63n(int64(RetryBaseDelay)))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
