// Package document resolves a job's payload reference into the document
// text handed to the extraction oracle. The core never parses spreadsheets
// itself; this package is the format-adapter boundary in front of it.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TextSource turns an opaque payload reference into document text.
type TextSource interface {
	Text(ctx context.Context, payloadRef string) (string, error)
}

// FileSource serves payload references that point at files on local disk.
// Spreadsheet workbooks render through the excel converter; anything else
// is read verbatim.
type FileSource struct {
	baseDir string
}

// NewFileSource roots all payload references under baseDir. References
// escaping the base directory are rejected.
func NewFileSource(baseDir string) *FileSource {
	return &FileSource{baseDir: baseDir}
}

func (s *FileSource) Text(ctx context.Context, payloadRef string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.baseDir, filepath.Clean("/"+payloadRef))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return WorkbookToMarkdown(path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", payloadRef, err)
	}
	return string(b), nil
}
