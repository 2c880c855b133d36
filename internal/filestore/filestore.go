// Package filestore stores attachment content under a private root,
// keyed by room id and attachment id rather than anything
// user-controlled, so crafted filenames cannot escape or overwrite other
// attachments' directories.
package filestore

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var unsafeChars = regexp.MustCompile(`[^\w.\-()\[\] ]+`)

// SanitizeFilename strips path components and replaces characters outside
// the allowed set with underscores. The result is only ever used as the
// leaf name inside an attachment's own directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "file"
	}
	return name
}

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) dir(roomId, attachmentId int) string {
	return filepath.Join(s.root, "rooms", strconv.Itoa(roomId), strconv.Itoa(attachmentId))
}

// Save writes the attachment content and returns the path it was stored
// at.
func (s *Store) Save(roomId, attachmentId int, filename string, r io.Reader) (string, error) {
	dir := s.dir(roomId, attachmentId)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}

	path := filepath.Join(dir, SanitizeFilename(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write attachment file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close attachment file: %w", err)
	}

	return path, nil
}

// Open returns the stored content and its FileInfo. The caller closes the
// file.
func (s *Store) Open(roomId, attachmentId int, filename string) (*os.File, fs.FileInfo, error) {
	path := filepath.Join(s.dir(roomId, attachmentId), SanitizeFilename(filename))
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("not a regular file: %s", path)
	}

	return f, fi, nil
}

// Remove deletes an attachment's directory and everything in it.
func (s *Store) Remove(roomId, attachmentId int) error {
	return os.RemoveAll(s.dir(roomId, attachmentId))
}
