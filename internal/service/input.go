package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"roleflow/internal/errors"
)

// ParseVars parses repeated KEY=VALUE entries into a variable set. Keys
// are trimmed; a duplicate key keeps the last value.
func ParseVars(items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		key, value, found := strings.Cut(item, "=")
		if !found {
			return nil, errors.ValidationError(fmt.Sprintf("invalid --var `%s`, expected KEY=VALUE", item))
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.ValidationError(fmt.Sprintf("invalid --var `%s`, empty key", item))
		}
		out[key] = value
	}
	return out, nil
}

// ReadTextArgOrFile interprets a value starting with "@" as a file path
// and returns the file contents; any other value passes through verbatim.
func ReadTextArgOrFile(value string) (string, error) {
	if !strings.HasPrefix(value, "@") {
		return value, nil
	}
	path := value[1:]
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.ValidationError(fmt.Sprintf("file not found: %s", path))
		}
		return "", errors.StorageError("read text argument", err)
	}
	return string(content), nil
}
