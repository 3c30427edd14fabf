// Package secrets resolves credentials from configuration values: literal
// strings, ${VAR} references and mounted secret files such as Docker or
// Kubernetes secrets. Secret values are never logged.
package secrets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

const (
	// maxFileSize bounds secret file reads; secrets are tokens, not documents.
	maxFileSize = 64 * 1024

	// permissiveBits are the group/other bits that trigger a warning.
	permissiveBits fs.FileMode = 0o077
)

// Expand replaces ${VAR} and ${VAR:-fallback} references in s with
// environment values. A reference without fallback to an unset variable
// is an error.
func Expand(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret file and trims trailing newlines. Files readable
// by group or other are accepted with a warning.
func ReadFile(path string, log logger.Logger) (string, error) {
	if path == "" {
		return "", fileError(path, "secret file path is empty", nil)
	}
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	switch {
	case err != nil:
		return "", fileError(clean, "cannot stat secret file", err)
	case !info.Mode().IsRegular():
		return "", fileError(clean, "secret path is not a regular file", nil)
	case info.Size() > maxFileSize:
		return "", fileError(clean, fmt.Sprintf("secret file larger than %d bytes", maxFileSize), nil)
	}

	if perm := info.Mode().Perm(); perm&permissiveBits != 0 && log != nil {
		log.Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fileError(clean, "cannot read secret file", err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError(clean, "secret file is empty", nil)
	}
	return secret, nil
}

func fileError(path, msg string, cause error) error {
	var err error
	if cause != nil {
		err = fmt.Errorf("%s: %w", msg, cause)
	} else {
		err = errors.NewStd(msg)
	}
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("path", path).
		Build()
}

// Resolve picks the secret from filePath when set, otherwise expands value.
// Both empty yields an empty secret.
func Resolve(filePath, value string, log logger.Logger) (string, error) {
	if filePath != "" {
		return ReadFile(filePath, log)
	}
	return Expand(value)
}
