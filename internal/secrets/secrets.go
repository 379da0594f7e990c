// Package secrets resolves credentials given as environment references or
// mounted secret files (Docker and Kubernetes secrets).
//
// Secret values are never logged; errors name the variable or file only.
package secrets

import (
	"io"
	"os"
	"strings"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

const (
	maxSecretFileSize = 64 * 1024
	// secureFileMode is the most permissive mode accepted without a warning.
	secureFileMode = 0o600
)

// Expand replaces ${VAR} and ${VAR:-default} references in s. A reference to
// an unset variable without a default is an error.
func Expand(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	out := os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("environment variables not set: %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("variables", missing).
			Build()
	}
	return out, nil
}

// ReadFile returns the trimmed content of a secret file. Files readable by
// group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	if info.IsDir() {
		return "", errors.Newf("secret path is a directory").
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	if info.Mode().Perm()&^secureFileMode != 0 {
		GetLogger().Warn("secret file permissions are too open",
			logger.String("path", path),
			logger.String("mode", info.Mode().Perm().String()))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxSecretFileSize+1))
	if err != nil {
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	if len(data) > maxSecretFileSize {
		return "", errors.Newf("secret file exceeds %d bytes", maxSecretFileSize).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	return strings.TrimSpace(string(data)), nil
}

// Resolve returns the content of file when it is set, otherwise value with
// environment references expanded.
func Resolve(value, file string) (string, error) {
	if file != "" {
		return ReadFile(file)
	}
	return Expand(value)
}

// GetLogger returns the secrets module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("secrets")
}
