// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "wiz-user-id", "  user@example.com  \n")
				writeFile(t, dir, "wiz-password", "hunter2")
				writeFile(t, dir, "wiz-server", "https://as.wiz.cn\n")
				return dir
			},
			want: map[string]string{
				"wiz-user-id":  "user@example.com",
				"wiz-password": "hunter2",
				"wiz-server":   "https://as.wiz.cn",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "wiz-user-id", "user@example.com")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"wiz-user-id": "user@example.com",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "wiz-password", "hunter2")
				return dir
			},
			want: map[string]string{
				"wiz-password": "hunter2",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "wiz-user-id", "user@example.com")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"wiz-user-id": "user@example.com",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestSaveRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".secrets")
	require.NoError(t, Save(dir, "wiz-user-id", "user@example.com"))
	require.NoError(t, Save(dir, "wiz-password", "hunter2"))

	info, err := os.Stat(filepath.Join(dir, "wiz-password"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"wiz-user-id":  "user@example.com",
		"wiz-password": "hunter2",
	}, got)
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, "wiz-password", "old"))
	require.NoError(t, Save(dir, "wiz-password", "new"))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "new", got["wiz-password"])
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
