package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// YAMLExtensions lists the file suffixes treated as workflow files.
var YAMLExtensions = []string{".yml", ".yaml"}

// IsYAML reports whether name carries a YAML extension.
func IsYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(YAMLExtensions, ext)
}

// ListYAML returns the names of regular YAML files directly under dir,
// sorted. A missing directory yields an empty list.
func ListYAML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsYAML(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
