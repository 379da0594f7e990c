// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

const appName = "snapquote"

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// If one of them already holds a config.yaml only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	configPaths := []string{"."}
	if exeDir, err := ExecutableDir(); err == nil {
		configPaths = append(configPaths, exeDir)
	}

	switch runtime.GOOS {
	case "windows":
		configPaths = append(configPaths, filepath.Join(homeDir, "AppData", "Roaming", appName))
	default:
		configPaths = append(configPaths,
			filepath.Join(homeDir, ".config", appName),
			"/etc/"+appName,
		)
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// ExecutableDir returns the directory of the running binary with symlinks resolved.
func ExecutableDir() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	if resolved, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolved
	}
	return filepath.Dir(exePath), nil
}

// GetLogger returns the config module logger. It is fetched from the global
// logger each time since the central logger is installed after config loads.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
