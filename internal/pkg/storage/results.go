package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// ResultWriter stores events with an opportunity as <dir>/<name>.json.
type ResultWriter struct {
	dir string
}

func NewResultWriter(dir string) *ResultWriter {
	return &ResultWriter{dir: dir}
}

var nameReplacer = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\x00", "")

// Write replaces any earlier result of the same name and returns the path.
func (w *ResultWriter) Write(name string, e *models.Event) (string, error) {
	name = strings.TrimSpace(nameReplacer.Replace(name))
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid result name %q", name)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}

	data, err := json.MarshalIndent(e, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	path := filepath.Join(w.dir, name+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move result into place: %w", err)
	}
	return path, nil
}
