package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage writes result artifacts to a dated directory tree on the
// local filesystem, e.g. outputs/2026/08/29/.
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local artifact store rooted at outputDir.
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{outputDir: outputDir}
}

// SaveArtifact writes one rendered artifact and returns its path. The
// filename is timestamped and sanitized: 20260829_143022_podcast.txt.
func (ls *LocalStorage) SaveArtifact(requestName, ext string, data []byte) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	timestamp := now.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", timestamp, sanitizeFilename(requestName), ext)
	path := filepath.Join(dateDir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	return path, nil
}

// SaveMetadata writes a sidecar JSON file next to the primary artifact.
func (ls *LocalStorage) SaveMetadata(artifactPath string, meta map[string]any) error {
	metaPath := strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath)) + "_meta.json"

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// Resolve maps an artifact file name back to a path under the output
// tree, refusing anything that escapes it.
func (ls *LocalStorage) Resolve(name string) (string, error) {
	clean := filepath.Clean(name)
	if strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid artifact name: %s", name)
	}

	var found string
	err := filepath.Walk(ls.outputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if filepath.Base(path) == clean {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("artifact not found: %s", name)
	}
	return found, nil
}

// sanitizeFilename strips path separators and characters that are not
// safe in a filename, and bounds the length.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	name = replacer.Replace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" || name == "." {
		name = "untitled"
	}
	return name
}
