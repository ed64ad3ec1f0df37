// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wizapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/wizbak/pkg/types"
)

func TestSession_LoginOnFirstToken(t *testing.T) {
	var logins int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		require.Equal(t, "/as/user/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "wizbak/0.1", r.Header.Get("User-Agent"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "alice@example.com", creds["userId"])
		assert.Equal(t, "s3cret", creds["password"])

		fmt.Fprint(w, `{"returnCode":200,"result":{"token":"tok-1","kbGuid":"kb-1","kbServer":"https://kb.example.com"}}`)
	}))
	defer ts.Close()

	s := NewSession(ts.Client(), types.APIConfig{Server: ts.URL}, Credentials{UserID: "alice@example.com", Password: "s3cret"})

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	kbServer, kbGUID := s.KB()
	assert.Equal(t, "https://kb.example.com", kbServer)
	assert.Equal(t, "kb-1", kbGUID)

	// Second Token call reuses the cached token.
	tok, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestSession_RefreshLogsInAgain(t *testing.T) {
	var logins int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&logins, 1)
		fmt.Fprintf(w, `{"returnCode":200,"result":{"token":"tok-%d","kbGuid":"kb-1","kbServer":"https://kb.example.com"}}`, n)
	}))
	defer ts.Close()

	s := NewSession(ts.Client(), types.APIConfig{Server: ts.URL}, Credentials{UserID: "u", Password: "p"})

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestSession_BadCredentials(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	s := NewSession(ts.Client(), types.APIConfig{Server: ts.URL}, Credentials{UserID: "u", Password: "wrong"})

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSession_EmptyTokenIsAuthError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"returnCode":200,"result":{"token":"","kbGuid":"","kbServer":""}}`)
	}))
	defer ts.Close()

	s := NewSession(ts.Client(), types.APIConfig{Server: ts.URL}, Credentials{UserID: "u", Password: "p"})

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}
