package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Limits applied to configuration inputs before they are parsed.
const (
	maxConfigSize = 1 << 20
	maxJSONDepth  = 32
	maxEnvVarLen  = 4096
	maxPathLen    = 4096
)

// validateConfigPath rejects paths that are empty, oversized, not
// JSON documents, or that resolve outside the working directory.
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("config path exceeds %d characters", maxPathLen)
	}
	if !strings.HasSuffix(path, ".json") {
		return fmt.Errorf("config file must end in .json, got %q", filepath.Ext(path))
	}
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("config path %s escapes the working directory", path)
	}
	return nil
}

// safeReadFile reads a config document after checking the path, the
// file type, and the size cap.
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxConfigSize)
	}

	return os.ReadFile(path)
}

// safeWriteFile writes a config document with owner-only permissions.
func safeWriteFile(path string, data []byte) error {
	if err := validateConfigPath(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// validateEnvVar bounds the size of an environment override and
// rejects embedded NUL bytes.
func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("%s exceeds %d bytes", key, maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s contains a NUL byte", key)
	}
	return nil
}

// validateJSONDepth bounds nesting before json.Unmarshal sees the
// document. Braces and brackets inside strings do not count.
func validateJSONDepth(data []byte) error {
	depth := 0
	inString := false
	escaped := false

	for _, b := range data {
		if escaped {
			escaped = false
			continue
		}
		switch b {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
				if depth > maxJSONDepth {
					return fmt.Errorf("config JSON exceeds max depth of %d", maxJSONDepth)
				}
			}
		case '}', ']':
			if !inString {
				depth--
			}
		}
	}

	return nil
}
