// Package export writes rendered topic artifacts to disk.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sink saves exported images under a base directory.
type Sink struct {
	baseDir string
}

func NewSink(baseDir string) (*Sink, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &Sink{baseDir: baseDir}, nil
}

// SaveImage writes data under a sanitized version of name and returns the
// full path. An existing file is never overwritten; a numeric suffix is
// appended instead.
func (s *Sink) SaveImage(name string, data []byte) (string, error) {
	base := sanitizeName(name)
	if filepath.Ext(base) == "" {
		base += ".png"
	}

	path := filepath.Join(s.baseDir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(s.baseDir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "topic"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "topic"
	}
	return b.String()
}
