package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

func TestExpand(t *testing.T) {
	t.Setenv("MSHD_SECRETS_TOKEN", "abc123")
	t.Setenv("MSHD_SECRETS_USER", "admin")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: ""},
		{name: "literal", input: "literal-value", want: "literal-value"},
		{name: "variable", input: "${MSHD_SECRETS_TOKEN}", want: "abc123"},
		{name: "embedded", input: "Bearer ${MSHD_SECRETS_TOKEN}", want: "Bearer abc123"},
		{name: "several", input: "${MSHD_SECRETS_USER}:${MSHD_SECRETS_TOKEN}", want: "admin:abc123"},
		{name: "fallback unused", input: "${MSHD_SECRETS_TOKEN:-other}", want: "abc123"},
		{name: "fallback used", input: "${MSHD_SECRETS_UNSET:-other}", want: "other"},
		{name: "empty fallback", input: "${MSHD_SECRETS_UNSET:-}", want: ""},
		{name: "missing", input: "${MSHD_SECRETS_UNSET}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "MSHD_SECRETS_UNSET")
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	write := func(name, content string, mode os.FileMode) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
		require.NoError(t, os.Chmod(path, mode))
		return path
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{name: "trailing newline", path: write("a", "s3cret\r\n", 0o600), want: "s3cret"},
		{name: "inner spaces kept", path: write("b", " pass word \n", 0o400), want: " pass word "},
		{name: "empty", path: write("c", "\n", 0o600), wantErr: "empty"},
		{name: "too large", path: write("d", strings.Repeat("x", maxFileSize+1), 0o600), wantErr: "larger"},
		{name: "missing", path: filepath.Join(dir, "absent"), wantErr: "stat"},
		{name: "directory", path: dir, wantErr: "regular file"},
		{name: "no path", path: "", wantErr: "path is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(tt.path, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFileWarnsOnPermissiveMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("value"), 0o600))
	require.NoError(t, os.Chmod(path, 0o644))

	var buf bytes.Buffer
	got, err := ReadFile(path, logger.NewSlogLogger(&buf, logger.LogLevelWarn, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "value", got)
	assert.Contains(t, buf.String(), "readable by group or others")
	assert.NotContains(t, buf.String(), "value\"")
}

func TestResolvePrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))
	t.Setenv("MSHD_SECRETS_RESOLVE", "from-env")

	got, err := Resolve(path, "${MSHD_SECRETS_RESOLVE}", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Resolve("", "${MSHD_SECRETS_RESOLVE}", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
