// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/pdiddy/wizbak/internal/httputil"
	"github.com/pdiddy/wizbak/pkg/types"
)

// TokenSource supplies a valid API token. The client asks for a token once
// per run and refreshes once on a detected auth failure; a second failure
// aborts the run.
type TokenSource interface {
	// Token returns the current token, performing an initial login if needed.
	Token(ctx context.Context) (string, error)

	// Refresh discards the current token and logs in again.
	Refresh(ctx context.Context) (string, error)
}

// Credentials identifies the account to log in as.
type Credentials struct {
	UserID   string
	Password string
}

// Session is a TokenSource backed by the account server's login endpoint.
// It also carries the knowledge base location returned at login.
type Session struct {
	client    *http.Client
	server    string
	userAgent string
	creds     Credentials

	mu       sync.Mutex
	token    string
	kbGUID   string
	kbServer string
}

// NewSession creates a session against the account server in cfg. No
// network traffic happens until Token is first called.
func NewSession(client *http.Client, cfg types.APIConfig, creds Credentials) *Session {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Session{client: client, server: cfg.Server, userAgent: ua, creds: creds}
}

type loginResult struct {
	Token    string `json:"token"`
	KbGUID   string `json:"kbGuid"`
	KbServer string `json:"kbServer"`
}

// Token returns the session token, logging in on first use.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	return s.login(ctx)
}

// Refresh forces a new login, replacing the cached token.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return s.login(ctx)
}

// KB returns the knowledge base server and GUID learned at login. It is
// valid only after a successful Token call.
func (s *Session) KB() (server, guid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kbServer, s.kbGUID
}

// login must be called with mu held.
func (s *Session) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"userId":   s.creds.UserID,
		"password": s.creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.server+"/as/user/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login HTTP %d: %w", resp.StatusCode, ErrAuth)
	}

	var result loginResult
	if err := decodeEnvelope(resp.Body, &result); err != nil {
		return "", fmt.Errorf("parsing login response: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("login returned no token: %w", ErrAuth)
	}

	s.token = result.Token
	s.kbGUID = result.KbGUID
	s.kbServer = result.KbServer
	return s.token, nil
}
