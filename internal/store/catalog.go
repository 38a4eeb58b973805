// Package store provides the node's local file catalog, file content
// transfer, and download/search history.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
)

const CatalogFileName = "availableFiles.txt"

var ErrInvalidFileName = errors.New("invalid file name")

// TextCatalog is a text file with one "filename keyword..." record per line.
type TextCatalog struct {
	mu   sync.Mutex
	path string
}

func NewTextCatalog(dir string) *TextCatalog {
	return &TextCatalog{path: filepath.Join(dir, CatalogFileName)}
}

func (c *TextCatalog) Path() string {
	return c.path
}

// Lookup returns the first record whose name or keywords match keyword.
// A missing catalog file is an empty catalog.
func (c *TextCatalog) Lookup(keyword string) (protocol.FileRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return protocol.FileRecord{}, false, nil
	}
	if err != nil {
		return protocol.FileRecord{}, false, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		record, ok := protocol.ParseFileRecord(scanner.Text())
		if ok && record.Matches(keyword) {
			return record, true, nil
		}
	}
	return protocol.FileRecord{}, false, scanner.Err()
}

func (c *TextCatalog) Record(file, keyword string) error {
	if err := ValidateFileName(file); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	line := file
	if keyword != "" {
		line += " " + keyword
	}
	_, err = fmt.Fprintln(f, line)
	return err
}

// ValidateFileName rejects names that could escape the storage directory
// or break a frame.
func ValidateFileName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\t \n") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return nil
}
